package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xelth-com/ecklinen/internal/rfid"
)

const keyPrefix = "ecklinen:snapshot:"

// Redis shares tenant snapshots between API instances
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache with the given entry TTL
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, tenantID string) ([]rfid.Entry, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+tenantKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []rfid.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *Redis) Put(ctx context.Context, tenantID string, entries []rfid.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+tenantKey(tenantID), raw, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, tenantID string) error {
	return c.client.Del(ctx, keyPrefix+tenantKey(tenantID)).Err()
}
