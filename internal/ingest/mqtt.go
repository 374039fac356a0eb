package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTBridge subscribes to a telemetry topic and ingests each message the
// same way POST /telemetry does.
type MQTTBridge struct {
	svc    *Service
	topic  string
	qos    byte
	client mqtt.Client
	log    *slog.Logger
}

// NewMQTTBridge prepares a client for brokerURL. Call Start to connect.
func NewMQTTBridge(svc *Service, brokerURL, topic string, log *slog.Logger) *MQTTBridge {
	b := &MQTTBridge{svc: svc, topic: topic, qos: 1, log: log}
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("rescueops-" + uuid.NewString()[:8]).
		SetOrderMatters(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		h := func(_ mqtt.Client, msg mqtt.Message) {
			if _, err := b.handle(context.Background(), msg.Topic(), msg.Payload()); err != nil {
				b.log.Warn("mqtt telemetry rejected", "topic", msg.Topic(), "err", err)
			}
		}
		if token := c.Subscribe(b.topic, b.qos, h); token.Wait() && token.Error() != nil {
			b.log.Error("mqtt subscribe failed", "topic", b.topic, "err", token.Error())
			return
		}
		b.log.Info("mqtt subscribed", "broker", brokerURL, "topic", b.topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		b.log.Warn("mqtt connection lost", "err", err)
	}
	b.client = mqtt.NewClient(opts)
	return b
}

// Start connects with exponential backoff and disconnects when ctx ends.
func (b *MQTTBridge) Start(ctx context.Context) error {
	backoff, maxBackoff := time.Second, 30*time.Second
	for {
		token := b.client.Connect()
		if token.Wait() && token.Error() == nil {
			break
		}
		b.log.Warn("mqtt connect failed", "err", token.Error(), "retry_in", backoff)
		select {
		case <-time.After(backoff):
			if backoff < maxBackoff {
				backoff *= 2
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	go func() {
		<-ctx.Done()
		b.client.Disconnect(250)
	}()
	return nil
}

// handle decodes one message. A missing unitId is taken from the last
// topic segment, e.g. rescueops/telemetry/D-001.
func (b *MQTTBridge) handle(ctx context.Context, topic string, payload []byte) (string, error) {
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if rec.String("unitId") == "" {
		if i := strings.LastIndex(topic, "/"); i >= 0 && i < len(topic)-1 {
			rec["unitId"] = topic[i+1:]
		}
	}
	return b.svc.IngestTelemetry(ctx, rec)
}
