// Package cache is a read-through TTL cache for compliance status reads on
// the public HTTP surface. The core itself never reads through it: engine
// operations always hit the store so gating decisions are never stale.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "clearledger/pkg/domain"
	"clearledger/pkg/platform/sentinel"
)

// StatusTTL bounds how stale a public status read may be.
var StatusTTL = 30 * time.Second

// Status is the cached, externally visible shape of a compliance record.
type Status struct {
	Account   string `json:"account"`
	Compliant bool   `json:"compliant"`
	Level     int    `json:"level"`
	ExpiresAt int64  `json:"expires_at"`
}

// Cache wraps a Redis client. A nil Cache is valid and misses everything,
// so callers need no special casing when Redis is not configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = StatusTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func key(account id.AccountID) string {
	return "registry:status:" + account.String()
}

// Get returns the cached status or sentinel.ErrNotFound on a miss.
func (c *Cache) Get(ctx context.Context, account id.AccountID) (Status, error) {
	if c == nil {
		return Status{}, sentinel.ErrNotFound
	}
	raw, err := c.client.Get(ctx, key(account)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Status{}, fmt.Errorf("redis get status: %w", err)
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return Status{}, fmt.Errorf("decode cached status: %w", err)
	}
	return status, nil
}

// Set stores the status with the configured TTL.
func (c *Cache) Set(ctx context.Context, account id.AccountID, status Status) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := c.client.Set(ctx, key(account), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set status: %w", err)
	}
	return nil
}

// Invalidate drops the cached status after an approve or revoke.
func (c *Cache) Invalidate(ctx context.Context, account id.AccountID) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, key(account)).Err(); err != nil {
		return fmt.Errorf("redis invalidate status: %w", err)
	}
	return nil
}
