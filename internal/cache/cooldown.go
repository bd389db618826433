package cache

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Cooldowns stores last-purchase times in a Cache, keyed by user and product.
// Entries expire when the cooldown ends so a miss means "no active cooldown
// known to the cache".
type Cooldowns struct {
	cache Cache
}

// NewCooldowns wraps c.
func NewCooldowns(c Cache) *Cooldowns {
	return &Cooldowns{cache: c}
}

func cooldownKey(userID, product string) string {
	return "cooldown:" + userID + ":" + product
}

// Get returns the cached last purchase time. ok is false on a miss.
func (c *Cooldowns) Get(ctx context.Context, userID, product string) (time.Time, bool, error) {
	raw, err := c.cache.Get(ctx, cooldownKey(userID, product))
	if errors.Is(err, ErrCacheMiss) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	nanos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		_ = c.cache.Delete(ctx, cooldownKey(userID, product))
		return time.Time{}, false, nil
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

// Set caches the last purchase time for as long as the cooldown runs.
func (c *Cooldowns) Set(ctx context.Context, userID, product string, last time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return c.cache.Delete(ctx, cooldownKey(userID, product))
	}
	return c.cache.Set(ctx, cooldownKey(userID, product), []byte(strconv.FormatInt(last.UnixNano(), 10)), ttl)
}

// ClearUser drops all cached cooldowns of a user.
func (c *Cooldowns) ClearUser(ctx context.Context, userID string) error {
	_, err := c.cache.DeletePrefix(ctx, "cooldown:"+userID+":")
	return err
}

// ClearAll drops every cached cooldown.
func (c *Cooldowns) ClearAll(ctx context.Context) error {
	_, err := c.cache.DeletePrefix(ctx, "cooldown:")
	return err
}
