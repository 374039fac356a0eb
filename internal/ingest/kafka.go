package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// AlertPublisher forwards stored alerts to downstream consumers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, key string, rec Record) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaAlertPublisher writes alerts to a topic keyed by alert key.
type KafkaAlertPublisher struct {
	w messageWriter
}

// NewKafkaAlertPublisher builds a synchronous writer that waits for all
// in-sync replicas.
func NewKafkaAlertPublisher(brokers []string, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}}
}

func (p *KafkaAlertPublisher) PublishAlert(ctx context.Context, key string, rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", key, err)
	}
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "record-type", Value: []byte("alert")}},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert %s: %w", key, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaAlertPublisher) Close() error { return p.w.Close() }
