package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"rescueops/internal/clock"
)

// DefaultAlertWindow bounds RecentAlerts.
const DefaultAlertWindow = time.Hour

// Service applies the record rules on top of a KV. It is safe for
// concurrent use when the KV is.
type Service struct {
	kv     KV
	sink   TelemetrySink
	alerts AlertPublisher
	clock  clock.Clock
	suffix func() string
	log    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSinks mirrors stored telemetry to sinks.
func WithSinks(sinks ...TelemetrySink) Option {
	return func(s *Service) {
		if len(sinks) == 1 {
			s.sink = sinks[0]
			return
		}
		if len(sinks) > 1 {
			s.sink = NewMultiSink(sinks...)
		}
	}
}

// WithAlertPublisher forwards stored alerts to p.
func WithAlertPublisher(p AlertPublisher) Option {
	return func(s *Service) { s.alerts = p }
}

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSuffix overrides the alert key suffix generator.
func WithSuffix(fn func() string) Option {
	return func(s *Service) { s.suffix = fn }
}

// WithLogger sets the logger for best-effort side effects.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService wraps kv.
func NewService(kv KV, opts ...Option) *Service {
	s := &Service{kv: kv, clock: clock.Real(), suffix: NewSuffix, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IngestTelemetry stores payload under telemetry:<unitId>:<iso> with a
// server timestamp and processed=false, then mirrors it to the sinks.
func (s *Service) IngestTelemetry(ctx context.Context, payload Record) (string, error) {
	key, row, err := s.storeTelemetry(ctx, payload)
	if err != nil {
		return "", err
	}
	if s.sink != nil {
		if err := s.sink.WriteTelemetry(ctx, row); err != nil {
			s.log.Warn("telemetry sink failed", "key", key, "err", err)
		}
	}
	return key, nil
}

// IngestTelemetryBatch stores each payload like IngestTelemetry and mirrors
// the stored rows to the sinks in one batch. It stops at the first store
// error; rows stored before it are still mirrored.
func (s *Service) IngestTelemetryBatch(ctx context.Context, payloads []Record) ([]string, error) {
	keys := make([]string, 0, len(payloads))
	rows := make([]TelemetryRow, 0, len(payloads))
	var storeErr error
	for _, p := range payloads {
		key, row, err := s.storeTelemetry(ctx, p)
		if err != nil {
			storeErr = err
			break
		}
		keys = append(keys, key)
		rows = append(rows, row)
	}
	if s.sink != nil && len(rows) > 0 {
		if err := writeBatch(ctx, s.sink, rows); err != nil {
			s.log.Warn("telemetry sink batch failed", "rows", len(rows), "err", err)
		}
	}
	return keys, storeErr
}

func (s *Service) storeTelemetry(ctx context.Context, payload Record) (string, TelemetryRow, error) {
	unitID := payload.String("unitId")
	if unitID == "" {
		return "", TelemetryRow{}, fmt.Errorf("telemetry: unitId required: %w", ErrInvalidPayload)
	}
	now := s.clock.Now()
	key := TelemetryKey(unitID, now)
	rec := payload.clone()
	rec["timestamp"] = ISOTime(now)
	rec["processed"] = false
	if err := s.kv.Put(ctx, key, rec); err != nil {
		return "", TelemetryRow{}, err
	}
	return key, rowFromRecord(key, rec, now), nil
}

// RelayMessage stores a communication under comm:<from>:<to>:<iso> with
// delivered=false.
func (s *Service) RelayMessage(ctx context.Context, payload Record) (string, error) {
	now := s.clock.Now()
	key := CommKey(payload.String("from"), payload.String("to"), now)
	rec := payload.clone()
	rec["timestamp"] = ISOTime(now)
	rec["delivered"] = false
	if err := s.kv.Put(ctx, key, rec); err != nil {
		return "", err
	}
	return key, nil
}

// SaveMission overwrites mission:<missionId> with status active.
func (s *Service) SaveMission(ctx context.Context, payload Record) (string, error) {
	id := payload.String("missionId")
	if id == "" {
		return "", fmt.Errorf("mission: missionId required: %w", ErrInvalidPayload)
	}
	key := MissionKey(id)
	rec := payload.clone()
	rec["createdAt"] = ISOTime(s.clock.Now())
	rec["status"] = "active"
	if err := s.kv.Put(ctx, key, rec); err != nil {
		return "", err
	}
	return key, nil
}

// GetMission returns the stored mission record.
func (s *Service) GetMission(ctx context.Context, missionID string) (Record, error) {
	return s.kv.Get(ctx, MissionKey(missionID))
}

// Telemetry returns one stored telemetry record by key.
func (s *Service) Telemetry(ctx context.Context, key string) (Record, error) {
	return s.kv.Get(ctx, key)
}

// IngestAlert stores payload under alert:<iso>:<suffix> with
// acknowledged=false and publishes it when a publisher is configured.
func (s *Service) IngestAlert(ctx context.Context, payload Record) (string, error) {
	now := s.clock.Now()
	key := AlertKey(now, s.suffix())
	rec := payload.clone()
	rec["timestamp"] = ISOTime(now)
	rec["acknowledged"] = false
	if err := s.kv.Put(ctx, key, rec); err != nil {
		return "", err
	}
	if s.alerts != nil {
		if err := s.alerts.PublishAlert(ctx, key, rec); err != nil {
			s.log.Warn("alert publish failed", "key", key, "err", err)
		}
	}
	return key, nil
}

// RecentAlerts returns alerts whose stored timestamp is strictly newer than
// now minus window, oldest first. Records with unreadable timestamps are
// skipped.
func (s *Service) RecentAlerts(ctx context.Context, window time.Duration) ([]Record, error) {
	entries, err := s.kv.ScanByPrefix(ctx, PrefixAlert)
	if err != nil {
		return nil, err
	}
	cutoff := s.clock.Now().Add(-window)
	type stamped struct {
		at  time.Time
		rec Record
	}
	var keep []stamped
	for _, e := range entries {
		at, err := time.Parse(time.RFC3339Nano, e.Record.String("timestamp"))
		if err != nil {
			continue
		}
		if at.After(cutoff) {
			keep = append(keep, stamped{at, e.Record})
		}
	}
	sort.SliceStable(keep, func(i, j int) bool { return keep[i].at.Before(keep[j].at) })
	out := make([]Record, 0, len(keep))
	for _, k := range keep {
		out = append(out, k.rec)
	}
	return out, nil
}
