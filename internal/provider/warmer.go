package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"realtyassist/internal/model"
)

// WarmFilters are the queries refreshed ahead of expiry: the unfiltered
// listing set and the default residential search.
func WarmFilters() []model.SearchFilter {
	return []model.SearchFilter{{}, model.DefaultFilter()}
}

// ScheduleWarm refreshes the cached entries for filters on the cron spec
// (e.g. "@every 10m"). The returned scheduler is already started; Stop it on
// shutdown.
func ScheduleWarm(c *CachedProvider, spec string, timeout time.Duration, filters []model.SearchFilter) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithLocation(time.UTC))
	_, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		c.WarmAll(ctx, filters)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule cache warming %q: %w", spec, err)
	}
	scheduler.Start()
	return scheduler, nil
}

// WarmAll warms every filter and returns how many succeeded
func (c *CachedProvider) WarmAll(ctx context.Context, filters []model.SearchFilter) int {
	warmed := 0
	for _, f := range filters {
		if err := c.Warm(ctx, f); err != nil {
			c.log.Warn("cache warming failed", map[string]interface{}{
				"provider": c.Name(),
				"error":    err,
			})
			continue
		}
		warmed++
	}
	c.log.Debug("listings cache warmed", map[string]interface{}{"warmed": warmed, "total": len(filters)})
	return warmed
}
