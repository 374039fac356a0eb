package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rescueops/internal/clock"
	"rescueops/internal/logging"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type captureSink struct {
	rows []TelemetryRow
	err  error
}

func (c *captureSink) WriteTelemetry(_ context.Context, row TelemetryRow) error {
	c.rows = append(c.rows, row)
	return c.err
}

type capturePublisher struct {
	keys []string
	err  error
}

func (c *capturePublisher) PublishAlert(_ context.Context, key string, _ Record) error {
	c.keys = append(c.keys, key)
	return c.err
}

type failingKV struct{}

func (failingKV) Put(context.Context, string, Record) error {
	return ErrStoreUnavailable
}

func (failingKV) Get(context.Context, string) (Record, error) {
	return nil, ErrStoreUnavailable
}

func (failingKV) ScanByPrefix(context.Context, string) ([]Entry, error) {
	return nil, ErrStoreUnavailable
}

func newTestService(opts ...Option) (*Service, *MemoryKV, *clock.FakeClock) {
	kv := NewMemoryKV()
	fc := clock.Fake(t0)
	base := []Option{WithClock(fc), WithSuffix(func() string { return "abc123xyz" }), WithLogger(logging.Discard())}
	return NewService(kv, append(base, opts...)...), kv, fc
}

func TestIngestTelemetry(t *testing.T) {
	sink := &captureSink{}
	svc, _, _ := newTestService(WithSinks(sink))
	ctx := context.Background()

	key, err := svc.IngestTelemetry(ctx, Record{
		"unitId":    "D-001",
		"battery":   85.0,
		"position":  map[string]any{"lat": 37.7749, "lng": -122.4194},
		"processed": true,
		"timestamp": "1999-01-01T00:00:00.000Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "telemetry:D-001:2024-03-01T12:00:00.000Z", key)

	rec, err := svc.Telemetry(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, false, rec["processed"])
	assert.Equal(t, "2024-03-01T12:00:00.000Z", rec["timestamp"])
	assert.Equal(t, 85.0, rec["battery"])

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "D-001", sink.rows[0].UnitID)
	assert.InDelta(t, 37.7749, sink.rows[0].Lat, 1e-9)
	assert.InDelta(t, -122.4194, sink.rows[0].Lng, 1e-9)
	assert.Equal(t, key, sink.rows[0].Key)
}

func TestIngestTelemetryRequiresUnitID(t *testing.T) {
	svc, kv, _ := newTestService()
	_, err := svc.IngestTelemetry(context.Background(), Record{"battery": 10.0})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, 0, kv.Len())
}

func TestSinkFailureDoesNotFailIngest(t *testing.T) {
	sink := &captureSink{err: errors.New("greptime down")}
	svc, kv, _ := newTestService(WithSinks(sink, &captureSink{}))
	_, err := svc.IngestTelemetry(context.Background(), Record{"unitId": "R-001"})
	require.NoError(t, err)
	assert.Equal(t, 1, kv.Len())
}

func TestStoreUnavailable(t *testing.T) {
	svc := NewService(failingKV{}, WithLogger(logging.Discard()))
	ctx := context.Background()
	_, err := svc.IngestTelemetry(ctx, Record{"unitId": "D-001"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = svc.IngestAlert(ctx, Record{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = svc.RecentAlerts(ctx, time.Hour)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = svc.GetMission(ctx, "m1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRecentAlertsWindow(t *testing.T) {
	pub := &capturePublisher{}
	svc, _, fc := newTestService(WithAlertPublisher(pub))
	ctx := context.Background()

	oldKey, err := svc.IngestAlert(ctx, Record{"message": "old", "acknowledged": true})
	require.NoError(t, err)
	assert.Equal(t, "alert:2024-03-01T12:00:00.000Z:abc123xyz", oldKey)

	fc.Advance(30 * time.Minute)
	_, err = svc.IngestAlert(ctx, Record{"message": "fresh"})
	require.NoError(t, err)

	fc.Advance(30 * time.Minute)
	alerts, err := svc.RecentAlerts(ctx, DefaultAlertWindow)
	require.NoError(t, err)
	require.Len(t, alerts, 1, "alert exactly one window old is excluded")
	assert.Equal(t, "fresh", alerts[0]["message"])
	assert.Equal(t, false, alerts[0]["acknowledged"])

	assert.Len(t, pub.keys, 2)
}

func TestPublishFailureDoesNotFailAlert(t *testing.T) {
	svc, kv, _ := newTestService(WithAlertPublisher(&capturePublisher{err: errors.New("kafka down")}))
	_, err := svc.IngestAlert(context.Background(), Record{"message": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, kv.Len())
}

func TestRelayMessage(t *testing.T) {
	svc, kv, _ := newTestService()
	ctx := context.Background()
	key, err := svc.RelayMessage(ctx, Record{"from": "D-001", "to": "base", "body": "ok", "delivered": true})
	require.NoError(t, err)
	assert.Equal(t, "comm:D-001:base:2024-03-01T12:00:00.000Z", key)
	rec, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, false, rec["delivered"])
}

func TestMissionRoundTrip(t *testing.T) {
	svc, _, fc := newTestService()
	ctx := context.Background()

	key, err := svc.SaveMission(ctx, Record{"missionId": "m-7", "name": "sweep", "status": "draft"})
	require.NoError(t, err)
	assert.Equal(t, "mission:m-7", key)

	fc.Advance(time.Minute)
	_, err = svc.SaveMission(ctx, Record{"missionId": "m-7", "name": "sweep north"})
	require.NoError(t, err)

	rec, err := svc.GetMission(ctx, "m-7")
	require.NoError(t, err)
	assert.Equal(t, "sweep north", rec["name"])
	assert.Equal(t, "active", rec["status"])
	assert.Equal(t, "2024-03-01T12:01:00.000Z", rec["createdAt"])

	_, err = svc.GetMission(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SaveMission(ctx, Record{"name": "no id"})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestIngestTelemetryBatchUsesSinkBatchMode(t *testing.T) {
	sink := &batchCapture{}
	svc, kv, _ := newTestService(WithSinks(sink))
	ctx := context.Background()

	keys, err := svc.IngestTelemetryBatch(ctx, []Record{
		{"unitId": "D-001", "lat": 37.77, "lng": -122.41},
		{"unitId": "R-001", "lat": 37.75, "lng": -122.43},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"telemetry:D-001:2024-03-01T12:00:00.000Z",
		"telemetry:R-001:2024-03-01T12:00:00.000Z",
	}, keys)
	assert.Equal(t, 1, sink.batches)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, "R-001", sink.rows[1].UnitID)

	rec, err := kv.Get(ctx, keys[1])
	require.NoError(t, err)
	assert.Equal(t, false, rec["processed"])
}

func TestIngestTelemetryBatchStopsAtInvalidRecord(t *testing.T) {
	sink := &captureSink{}
	svc, _, _ := newTestService(WithSinks(sink))

	keys, err := svc.IngestTelemetryBatch(context.Background(), []Record{
		{"unitId": "D-001"},
		{"battery": 10.0},
		{"unitId": "R-001"},
	})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Len(t, keys, 1)
	require.Len(t, sink.rows, 1, "rows stored before the failure are still mirrored")
	assert.Equal(t, "D-001", sink.rows[0].UnitID)
}
