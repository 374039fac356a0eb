// Package ingest stores telemetry, alerts, communications and missions as
// keyed records, and mirrors telemetry to time-series and log sinks.
package ingest

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for an absent key.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidPayload is returned for records missing a required field.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Record is an opaque JSON object plus the server-assigned fields.
type Record map[string]any

// Entry pairs a key with its record.
type Entry struct {
	Key    string `json:"key"`
	Record Record `json:"record"`
}

// KV is the append-mostly keyed store behind the service. Records are
// never mutated in place; Put overwrites the whole value.
type KV interface {
	Put(ctx context.Context, key string, rec Record) error
	Get(ctx context.Context, key string) (Record, error)
	ScanByPrefix(ctx context.Context, prefix string) ([]Entry, error)
}

func (r Record) clone() Record {
	out := make(Record, len(r)+3)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the string field k or "".
func (r Record) String(k string) string {
	s, _ := r[k].(string)
	return s
}
