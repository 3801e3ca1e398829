package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xelth-com/ecklinen/internal/rfid"
)

// LRU is an in-process snapshot cache bounded by tenant count and TTL
type LRU struct {
	lru *expirable.LRU[string, []rfid.Entry]
}

// NewLRU creates an LRU holding at most size tenants for ttl each
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1
	}
	return &LRU{lru: expirable.NewLRU[string, []rfid.Entry](size, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, tenantID string) ([]rfid.Entry, bool, error) {
	entries, ok := c.lru.Get(tenantKey(tenantID))
	return entries, ok, nil
}

func (c *LRU) Put(_ context.Context, tenantID string, entries []rfid.Entry) error {
	c.lru.Add(tenantKey(tenantID), entries)
	return nil
}

func (c *LRU) Invalidate(_ context.Context, tenantID string) error {
	c.lru.Remove(tenantKey(tenantID))
	return nil
}
