// Package redis persists loaded collision tables in Redis so a restarted
// dashboard can skip re-reading the CSV.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/collisions-dashboard/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "collisions:table:"
	scanCount = 100
)

// client is the subset of *goredis.Client the store uses.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
}

// SnapshotStore implements loader.SnapshotStore on Redis string keys holding
// JSON-encoded tables.
type SnapshotStore struct {
	client client
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// NewSnapshotStore creates a store whose entries expire after ttl (0 keeps
// them until deleted).
func NewSnapshotStore(c client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: c, ttl: ttl}
}

// Get returns the table stored under key. A missing key is not an error.
func (s *SnapshotStore) Get(ctx context.Context, key string) (*domain.Table, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get snapshot %s: %w", key, err)
	}

	var t domain.Table
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &t, true, nil
}

func (s *SnapshotStore) Put(ctx context.Context, key string, t *domain.Table) error {
	val, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every snapshot whose key starts with prefix, walking
// the keyspace with SCAN.
func (s *SnapshotStore) DeletePrefix(ctx context.Context, prefix string) error {
	match := keyPrefix + globEscaper.Replace(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return fmt.Errorf("scan snapshots %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete snapshots %s: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// CheckReadiness pings Redis.
func (s *SnapshotStore) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis not reachable: %w", err)
	}
	return nil
}
