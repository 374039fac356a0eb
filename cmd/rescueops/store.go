package main

import (
	"context"
	"log/slog"

	"rescueops/internal/config"
	"rescueops/internal/ingest"
)

// newKV connects to Redis when an address is configured and falls back to
// the in-memory store otherwise. The returned func releases the client.
func newKV(ctx context.Context, st config.Storage, log *slog.Logger) (ingest.KV, func(), error) {
	if st.RedisAddr == "" {
		log.Info("record store: memory")
		return ingest.NewMemoryKV(), func() {}, nil
	}
	client, err := ingest.NewRedisClient(ctx, st.RedisAddr, st.RedisPassword, st.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	log.Info("record store: redis", "addr", st.RedisAddr, "db", st.RedisDB)
	return ingest.NewRedisKV(client, st.Namespace), func() { _ = client.Close() }, nil
}
