package cache

import (
	"context"
	"time"
)

// Start runs the eviction loop until ctx is cancelled.
func (c *TrackCache) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache janitor stopped")
			return nil
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
