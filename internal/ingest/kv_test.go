package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVScanByPrefix(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, "alert:2", Record{"n": 2.0}))
	require.NoError(t, kv.Put(ctx, "alert:1", Record{"n": 1.0}))
	require.NoError(t, kv.Put(ctx, "mission:1", Record{"n": 3.0}))

	entries, err := kv.ScanByPrefix(ctx, "alert:")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alert:1", entries[0].Key)
	assert.Equal(t, "alert:2", entries[1].Key)

	none, err := kv.ScanByPrefix(ctx, "telemetry:")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryKVReturnsCopies(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	rec := Record{"status": "active"}
	require.NoError(t, kv.Put(ctx, "mission:a", rec))
	rec["status"] = "mutated"

	got, err := kv.Get(ctx, "mission:a")
	require.NoError(t, err)
	assert.Equal(t, "active", got["status"])
	got["status"] = "changed"

	again, _ := kv.Get(ctx, "mission:a")
	assert.Equal(t, "active", again["status"])
}

func TestMemoryKVNotFound(t *testing.T) {
	_, err := NewMemoryKV().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisKVUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	kv := NewRedisKV(client, "rescueops:")
	ctx := context.Background()

	assert.ErrorIs(t, kv.Put(ctx, "alert:x", Record{}), ErrStoreUnavailable)
	_, err := kv.Get(ctx, "alert:x")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = kv.ScanByPrefix(ctx, "alert:")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `telemetry:D\*1\?:`, escapeGlob("telemetry:D*1?:"))
	assert.Equal(t, `a\[b\]\\`, escapeGlob(`a[b]\`))
}

func TestKeys(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 5, 6, 789_000_000, time.FixedZone("x", 2*3600))
	assert.Equal(t, "telemetry:R-001:2024-03-01T12:05:06.789Z", TelemetryKey("R-001", ts))
	assert.Equal(t, "alert:2024-03-01T12:05:06.789Z:s", AlertKey(ts, "s"))
	assert.Equal(t, "comm:a:b:2024-03-01T12:05:06.789Z", CommKey("a", "b", ts))
	assert.Equal(t, "mission:m", MissionKey("m"))
	assert.Len(t, NewSuffix(), 9)
}
