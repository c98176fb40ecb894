// Package stats computes per-campaign delivery statistics and
// cross-campaign dashboard aggregates.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/geocast/geocast/internal/metrics"
	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/storage"
)

// ErrAggregationUnavailable marks a statistics query that failed
// because an underlying store read failed. No partial statistics are
// ever returned alongside it.
var ErrAggregationUnavailable = errors.New("aggregation unavailable")

// AggregationError wraps a store failure during an aggregate query.
type AggregationError struct {
	Query string
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation %s unavailable: %v", e.Query, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

func (e *AggregationError) Is(target error) bool {
	return target == ErrAggregationUnavailable
}

// UnsetLocationLabel is reported for campaigns without a targeting
// location in the recent-campaigns listing.
const UnsetLocationLabel = "unset"

// DefaultRecentLimit caps the recent-campaigns listing.
const DefaultRecentLimit = 5

// CampaignStats is the per-campaign delivery summary.
type CampaignStats struct {
	TargetingLocationName *string  `json:"targeting_location_name"`
	TargetingRadiusM      *float64 `json:"targeting_radius_m"`
	TotalDeliveries       int64    `json:"total_deliveries"`
	SuccessfulDeliveries  int64    `json:"successful_deliveries"`
	SuccessRate           float64  `json:"success_rate"`
}

// Summary is the cross-campaign dashboard headline block.
type Summary struct {
	TotalCampaigns   int64   `json:"total_campaigns"`
	TotalMessages    int64   `json:"total_messages"`
	ReachedCustomers int64   `json:"reached_customers"`
	ReachRate        float64 `json:"reach_rate"`
}

// HourlyStat is one hour bucket of today's delivery volume with its
// day-over-day change.
type HourlyStat struct {
	Hour       string  `json:"hour"`
	Count      int64   `json:"count"`
	ChangeRate float64 `json:"change_rate"`
}

// RegionStat is one region's share of the customer population.
type RegionStat struct {
	Region     string  `json:"region"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RecentCampaign joins campaign metadata with its delivery volume and
// targeting location name.
type RecentCampaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Location     string    `json:"location"`
	MessageCount int64     `json:"message_count"`
}

// Aggregator computes statistics from the stores. All percentages are
// derived on each call, never stored.
type Aggregator struct {
	campaigns  storage.CampaignStore
	customers  storage.CustomerStore
	deliveries storage.DeliveryStore
	locations  storage.TargetingLocationStore
	counters   *Counters
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewAggregator constructs an Aggregator. counters and m may be nil.
func NewAggregator(
	campaigns storage.CampaignStore,
	customers storage.CustomerStore,
	deliveries storage.DeliveryStore,
	locations storage.TargetingLocationStore,
	counters *Counters,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		campaigns:  campaigns,
		customers:  customers,
		deliveries: deliveries,
		locations:  locations,
		counters:   counters,
		metrics:    m,
		logger:     logger,
	}
}

func (a *Aggregator) unavailable(query string, err error) error {
	if a.metrics != nil {
		a.metrics.RecordAggregationError(query)
	}
	a.logger.Error("aggregation failed", zap.String("query", query), zap.Error(err))
	return &AggregationError{Query: query, Err: err}
}

// CampaignStats returns delivery counts and the success rate for one
// campaign. A missing campaign is NotFound; a campaign without
// deliveries reports a 0.0 rate, never a division fault.
func (a *Aggregator) CampaignStats(ctx context.Context, campaignID string) (*CampaignStats, error) {
	campaign, err := a.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	out := &CampaignStats{}

	if campaign.TargetingLocationID != nil {
		loc, err := a.locations.Get(ctx, *campaign.TargetingLocationID)
		if err == nil {
			out.TargetingLocationName = &loc.Name
			out.TargetingRadiusM = &loc.RadiusM
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, a.unavailable("campaign_stats", err)
		}
	}

	total, err := a.deliveries.CountByCampaign(ctx, campaignID)
	if err != nil {
		return nil, a.unavailable("campaign_stats", err)
	}
	successful, err := a.deliveries.CountSuccessfulByCampaign(ctx, campaignID)
	if err != nil {
		return nil, a.unavailable("campaign_stats", err)
	}

	out.TotalDeliveries = total
	out.SuccessfulDeliveries = successful
	if total > 0 {
		out.SuccessRate = round2(float64(successful) / float64(total) * 100)
	}

	return out, nil
}

// DashboardSummary returns the cross-campaign headline metrics.
func (a *Aggregator) DashboardSummary(ctx context.Context) (*Summary, error) {
	totalCampaigns, err := a.campaigns.Count(ctx)
	if err != nil {
		return nil, a.unavailable("summary", err)
	}
	totalMessages, err := a.deliveries.Count(ctx)
	if err != nil {
		return nil, a.unavailable("summary", err)
	}
	reached, err := a.deliveries.CountDistinctCustomersByStatus(ctx, models.DeliveryStatusSent)
	if err != nil {
		return nil, a.unavailable("summary", err)
	}

	summary := &Summary{
		TotalCampaigns:   totalCampaigns,
		TotalMessages:    totalMessages,
		ReachedCustomers: reached,
	}

	if totalMessages > 0 {
		sent, err := a.deliveries.CountByStatus(ctx, models.DeliveryStatusSent)
		if err != nil {
			return nil, a.unavailable("summary", err)
		}
		summary.ReachRate = round1(float64(sent) / float64(totalMessages) * 100)
	}

	return summary, nil
}

// HourlyDeliveries buckets the day's deliveries into 24 hour buckets
// with a day-over-day change rate per bucket. Growth from an empty
// yesterday bucket reports 0.0, never infinity.
func (a *Aggregator) HourlyDeliveries(ctx context.Context, day time.Time) ([]HourlyStat, error) {
	today, err := a.hourlyCounts(ctx, day)
	if err != nil {
		return nil, a.unavailable("hourly", err)
	}
	yesterday, err := a.hourlyCounts(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return nil, a.unavailable("hourly", err)
	}

	out := make([]HourlyStat, 24)
	for h := 0; h < 24; h++ {
		stat := HourlyStat{
			Hour:  fmt.Sprintf("%02d:00", h),
			Count: today[h],
		}
		if yesterday[h] > 0 {
			stat.ChangeRate = round1(float64(today[h]-yesterday[h]) / float64(yesterday[h]) * 100)
		}
		out[h] = stat
	}

	return out, nil
}

// hourlyCounts prefers the Redis counters and falls back to the
// delivery store.
func (a *Aggregator) hourlyCounts(ctx context.Context, day time.Time) ([24]int64, error) {
	if a.counters != nil {
		counts, err := a.counters.HourlyCounts(ctx, day)
		if err == nil {
			return counts, nil
		}
		a.logger.Warn("counter read failed, falling back to store", zap.Error(err))
	}

	var counts [24]int64
	rows, err := a.deliveries.HourlyCountsByDate(ctx, day)
	if err != nil {
		return counts, err
	}
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			counts[row.Hour] = row.Count
		}
	}
	return counts, nil
}

// CustomerDistribution groups the customer population by region with
// each region's share of the total. Distinct region codes mapping to
// the same district are merged into one row.
func (a *Aggregator) CustomerDistribution(ctx context.Context) ([]RegionStat, error) {
	dist, err := a.customers.DistributionByRegion(ctx)
	if err != nil {
		return nil, a.unavailable("distribution", err)
	}
	total, err := a.customers.Count(ctx)
	if err != nil {
		return nil, a.unavailable("distribution", err)
	}

	merged := make(map[string]int64, len(dist))
	for _, rc := range dist {
		merged[RegionName(rc.RegionCode)] += rc.Count
	}

	out := make([]RegionStat, 0, len(merged))
	for region, count := range merged {
		stat := RegionStat{
			Region: region,
			Count:  count,
		}
		if total > 0 {
			stat.Percentage = round1(float64(count) / float64(total) * 100)
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Region < out[j].Region
	})

	return out, nil
}

// RecentCampaigns lists the newest campaigns joined with their delivery
// counts and targeting location names. Campaigns without a location
// report the unset label, without deliveries a zero count.
func (a *Aggregator) RecentCampaigns(ctx context.Context, limit int) ([]RecentCampaign, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	campaigns, err := a.campaigns.List(ctx)
	if err != nil {
		return nil, a.unavailable("recent", err)
	}
	if len(campaigns) > limit {
		campaigns = campaigns[:limit]
	}

	out := make([]RecentCampaign, 0, len(campaigns))
	for _, c := range campaigns {
		rc := RecentCampaign{
			ID:        c.ID,
			Name:      c.Name,
			Status:    string(c.Status),
			CreatedAt: c.CreatedAt,
			Location:  UnsetLocationLabel,
		}

		if c.TargetingLocationID != nil {
			loc, err := a.locations.Get(ctx, *c.TargetingLocationID)
			if err == nil {
				rc.Location = loc.Name
			} else if !errors.Is(err, storage.ErrNotFound) {
				return nil, a.unavailable("recent", err)
			}
		}

		count, err := a.deliveries.CountByCampaign(ctx, c.ID)
		if err != nil {
			return nil, a.unavailable("recent", err)
		}
		rc.MessageCount = count

		out = append(out, rc)
	}

	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
