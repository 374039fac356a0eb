package ingest

import (
	"context"
	"errors"
	"time"
)

// TelemetryRow is the flattened form of a telemetry record written to sinks.
type TelemetryRow struct {
	Key       string    `json:"key"`
	UnitID    string    `json:"unitId"`
	UnitType  string    `json:"type,omitempty"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Status    string    `json:"status,omitempty"`
	Battery   float64   `json:"battery"`
	Timestamp time.Time `json:"timestamp"`
}

// TelemetrySink receives a copy of every stored telemetry record.
type TelemetrySink interface {
	WriteTelemetry(ctx context.Context, row TelemetryRow) error
}

// Optional: sinks may accept batches.
type batchSink interface {
	WriteTelemetryBatch(ctx context.Context, rows []TelemetryRow) error
}

// MultiSink fans rows out to every sink and joins their errors.
type MultiSink struct {
	sinks []TelemetrySink
}

// NewMultiSink creates a MultiSink.
func NewMultiSink(sinks ...TelemetrySink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Len returns the number of sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) WriteTelemetry(ctx context.Context, row TelemetryRow) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.WriteTelemetry(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteTelemetryBatch uses each sink's batch mode when it has one.
func (m *MultiSink) WriteTelemetryBatch(ctx context.Context, rows []TelemetryRow) error {
	var errs []error
	for _, s := range m.sinks {
		if err := writeBatch(ctx, s, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeBatch(ctx context.Context, s TelemetrySink, rows []TelemetryRow) error {
	if bs, ok := s.(batchSink); ok {
		return bs.WriteTelemetryBatch(ctx, rows)
	}
	var errs []error
	for _, r := range rows {
		if err := s.WriteTelemetry(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// rowFromRecord accepts either top-level lat/lng or a position object.
func rowFromRecord(key string, rec Record, ts time.Time) TelemetryRow {
	row := TelemetryRow{
		Key:       key,
		UnitID:    rec.String("unitId"),
		UnitType:  rec.String("type"),
		Status:    rec.String("status"),
		Battery:   number(rec["battery"]),
		Lat:       number(rec["lat"]),
		Lng:       number(rec["lng"]),
		Timestamp: ts.UTC(),
	}
	if pos, ok := rec["position"].(map[string]any); ok {
		row.Lat = number(pos["lat"])
		row.Lng = number(pos["lng"])
	}
	return row
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
