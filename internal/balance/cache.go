package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/barpos/barpos/internal/money"
)

// Cache stores current balances in Redis. Every balance-affecting write
// must call Invalidate for the touched user; stale reads are otherwise
// possible and violate the determinism contract.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache constructs a balance cache.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Get fetches the cached current balance for a user.
func (c *Cache) Get(ctx context.Context, userID int64) (money.Money, bool) {
	payload, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		return money.Money{}, false
	}
	var m money.Money
	if err := json.Unmarshal(payload, &m); err != nil {
		c.logger.Warn("balance cache decode", slog.Any("error", err))
		return money.Money{}, false
	}
	return m, true
}

// Put stores the current balance for a user.
func (c *Cache) Put(ctx context.Context, userID int64, m money.Money) {
	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(userID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache set", slog.Any("error", err))
	}
}

// Invalidate removes the cached balance for a user.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		c.logger.Warn("balance cache invalidate", slog.Any("error", err))
	}
}

func key(userID int64) string {
	return fmt.Sprintf("balance:current:%d", userID)
}
