// Package cache provides rfid.SnapshotCache implementations.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xelth-com/ecklinen/internal/config"
	"github.com/xelth-com/ecklinen/internal/rfid"
)

// allTenants keys the cross-tenant snapshot
const allTenants = "*"

func tenantKey(tenantID string) string {
	if tenantID == "" {
		return allTenants
	}
	return tenantID
}

func noClose() error { return nil }

// New builds the snapshot cache selected by cfg together with the func that
// releases its connections. The "none" backend returns a nil cache, which
// disables caching.
func New(cfg config.CacheConfig, redisCfg config.RedisConfig) (rfid.SnapshotCache, func() error, error) {
	switch cfg.Backend {
	case "none":
		return nil, noClose, nil
	case "memory":
		return NewLRU(cfg.Size, cfg.TTL), noClose, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", redisCfg.Addr, err)
		}
		return NewRedis(client, cfg.TTL), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot cache backend %q", cfg.Backend)
	}
}
