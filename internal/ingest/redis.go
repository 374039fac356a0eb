package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisKV stores records as JSON strings under an optional namespace.
type RedisKV struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w: %v", addr, ErrStoreUnavailable, err)
	}
	return rdb, nil
}

// NewRedisKV wraps client. Keys are stored as namespace+key.
func NewRedisKV(client redis.UniversalClient, namespace string) *RedisKV {
	return &RedisKV{client: client, namespace: namespace}
}

func (r *RedisKV) Put(ctx context.Context, key string, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.namespace+key, b, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w: %v", key, ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisKV) Get(ctx context.Context, key string) (Record, error) {
	b, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w: %v", key, ErrStoreUnavailable, err)
	}
	return decode(key, b)
}

// ScanByPrefix walks SCAN MATCH <prefix>* and fetches values with MGET.
// SCAN may repeat keys across pages; each key is returned once. Keys removed
// between the scan and the fetch are skipped.
func (r *RedisKV) ScanByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	match := escapeGlob(r.namespace+prefix) + "*"
	var (
		cursor uint64
		out    []Entry
		seen   = make(map[string]struct{})
	)
	for {
		page, next, err := r.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w: %v", prefix, ErrStoreUnavailable, err)
		}
		keys := make([]string, 0, len(page))
		for _, k := range page {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			vals, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("mget %s: %w: %v", prefix, ErrStoreUnavailable, err)
			}
			for i, v := range vals {
				s, ok := v.(string)
				if !ok {
					continue
				}
				key := strings.TrimPrefix(keys[i], r.namespace)
				rec, err := decode(key, []byte(s))
				if err != nil {
					return nil, err
				}
				out = append(out, Entry{Key: key, Record: rec})
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
