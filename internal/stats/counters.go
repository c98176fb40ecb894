package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geocast/geocast/internal/models"
)

// counterTTL keeps today's and yesterday's buckets alive, which is all
// the hourly dashboard needs.
const counterTTL = 48 * time.Hour

// Counters maintains hot dashboard counters in Redis, keyed per day and
// hour. They are a fast path over the delivery store, not the source of
// truth.
type Counters struct {
	client *redis.Client
}

// NewCounters constructs Counters over the given Redis client.
func NewCounters(client *redis.Client) *Counters {
	return &Counters{client: client}
}

func hourlyKey(day string, hour int) string {
	return fmt.Sprintf("stats:deliveries:%s:%d", day, hour)
}

// RecordDelivery bumps the hourly bucket for a delivery sent at t, and
// the daily sent counter when the outcome was SENT.
func (c *Counters) RecordDelivery(ctx context.Context, t time.Time, status models.DeliveryStatus) error {
	t = t.UTC()
	day := t.Format("2006-01-02")

	pipe := c.client.Pipeline()
	key := hourlyKey(day, t.Hour())
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if status == models.DeliveryStatusSent {
		sentKey := "stats:sent:" + day
		pipe.Incr(ctx, sentKey)
		pipe.Expire(ctx, sentKey, counterTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// HourlyCounts reads the 24 hour buckets for a day. Missing buckets
// read as zero.
func (c *Counters) HourlyCounts(ctx context.Context, day time.Time) ([24]int64, error) {
	var counts [24]int64
	dayStr := day.UTC().Format("2006-01-02")

	keys := make([]string, 24)
	for h := 0; h < 24; h++ {
		keys[h] = hourlyKey(dayStr, h)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return counts, err
	}

	for h, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			var n int64
			fmt.Sscanf(s, "%d", &n)
			counts[h] = n
		}
	}

	return counts, nil
}
