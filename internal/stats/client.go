// Package stats records moderation counters in Redis. Counters are advisory;
// a Redis failure logs and the evaluation path continues.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// DailyStatsKeyPrefix forms the base key for daily statistics in Redis.
	DailyStatsKeyPrefix = "daily_statistics"

	// HourlyStatsKeyPrefix forms the base key for hourly statistics in Redis.
	HourlyStatsKeyPrefix = "hourly_statistics"

	// TotalsKey holds the all-time counters.
	TotalsKey = "total_statistics"

	// FieldChecks tracks how many evaluations ran.
	FieldChecks = "total_checks"
	// FieldBlocks tracks how many evaluations produced a blocked verdict.
	FieldBlocks = "blocks"
	// FieldWarnings tracks how many evaluations produced a non-safe verdict.
	FieldWarnings = "warnings"
)

// HourlyStat represents a single hour's statistics.
// The Hour field is used to order stats chronologically.
type HourlyStat struct {
	Hour     int `json:"hour"`
	Checks   int `json:"checks"`
	Blocks   int `json:"blocks"`
	Warnings int `json:"warnings"`
}

// HourlyStats represents a collection of hourly statistics.
type HourlyStats []HourlyStat

// Totals holds the all-time counters.
type Totals struct {
	Checks   int64 `json:"totalChecks"`
	Blocks   int64 `json:"blocks"`
	Warnings int64 `json:"warnings"`
}

// Client handles Redis operations for storing and retrieving statistics.
type Client struct {
	Client rueidis.Client
	logger *zap.Logger
}

// NewClient creates a Client with the provided Redis connection and logger.
func NewClient(client rueidis.Client, logger *zap.Logger) *Client {
	return &Client{
		Client: client,
		logger: logger.Named("stats"),
	}
}

// IncrementStat atomically bumps a counter in the totals hash and in the
// current daily and hourly buckets.
func (c *Client) IncrementStat(ctx context.Context, field string, count int) error {
	now := time.Now().UTC()
	keys := []string{
		TotalsKey,
		fmt.Sprintf("%s:%s", DailyStatsKeyPrefix, now.Format("2006-01-02")),
		fmt.Sprintf("%s:%s", HourlyStatsKeyPrefix, now.Format("2006-01-02:15")),
	}

	for _, key := range keys {
		cmd := c.Client.B().Hincrby().Key(key).Field(field).Increment(int64(count)).Build()
		if err := c.Client.Do(ctx, cmd).Error(); err != nil {
			c.logger.Error("Failed to increment stat",
				zap.Error(err),
				zap.String("key", key),
				zap.String("field", field),
				zap.Int("count", count))

			return err
		}
	}

	return nil
}

// GetTotals retrieves the all-time counters.
func (c *Client) GetTotals(ctx context.Context) (Totals, error) {
	cmd := c.Client.B().Hgetall().Key(TotalsKey).Build()

	result, err := c.Client.Do(ctx, cmd).AsIntMap()
	if err != nil {
		c.logger.Error("Failed to get totals", zap.Error(err))
		return Totals{}, err
	}

	return Totals{
		Checks:   result[FieldChecks],
		Blocks:   result[FieldBlocks],
		Warnings: result[FieldWarnings],
	}, nil
}

// GetHourlyStats retrieves statistics for the last 24 hours.
// It combines data from multiple Redis keys into a chronological list.
func (c *Client) GetHourlyStats(ctx context.Context) (HourlyStats, error) {
	stats := make(HourlyStats, 24)
	now := time.Now().UTC()

	// Collect stats for each of the last 24 hours
	for i := range stats {
		hour := now.Add(time.Duration(-i) * time.Hour)
		key := fmt.Sprintf("%s:%s", HourlyStatsKeyPrefix, hour.Format("2006-01-02:15"))

		// Get all fields for this hour using HGETALL
		cmd := c.Client.B().Hgetall().Key(key).Build()

		result, err := c.Client.Do(ctx, cmd).AsIntMap()
		if err != nil {
			c.logger.Error("Failed to get hourly stats",
				zap.Error(err),
				zap.String("key", key))

			return nil, err
		}

		// Store stats in chronological order
		stats[23-i] = HourlyStat{
			Hour:     hour.Hour(),
			Checks:   int(result[FieldChecks]),
			Blocks:   int(result[FieldBlocks]),
			Warnings: int(result[FieldWarnings]),
		}
	}

	return stats, nil
}
