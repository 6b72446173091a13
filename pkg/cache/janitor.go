package cache

import (
	"context"
	"time"

	"chatsync/pkg/logger"
)

// StartJanitor launches a background sweeper that proactively purges entries
// older than TTL on a fixed interval, bounding memory even for keys that are
// never read again. It returns when ctx is cancelled.
func (c *Cache[V]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.purgeExpired(); n > 0 {
					logger.Debug("cache_janitor_purged", "count", n)
				}
			}
		}
	}()
}

// purgeExpired removes every entry past TTL and returns how many went.
func (c *Cache[V]) purgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var purged int
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.CreatedAt) > c.opts.TTL {
			delete(c.entries, k)
			purged++
			expirationsTotal.Inc()
		}
	}
	if purged > 0 {
		sizeGauge.Set(float64(len(c.entries)))
	}
	return purged
}
