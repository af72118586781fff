package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/event-service/internal/application/ports"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

const keyPrefix = "ewm:"

// Cache is a JSON value cache over redis. Keys are namespaced with keyPrefix.
type Cache struct {
	rdb *redis.Client
}

var _ ports.Cache = (*Cache)(nil)

func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Cache{rdb: rdb}, nil
}

func NewFromClient(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Get reports a miss for absent keys. An entry that no longer decodes into
// dest is dropped and also reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = c.rdb.Del(ctx, keyPrefix+key).Err()
		return false, nil
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+key, b, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}
