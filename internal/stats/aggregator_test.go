package stats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/storage"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	campaigns  *storage.InMemoryCampaignStore
	customers  *storage.InMemoryCustomerStore
	deliveries *storage.InMemoryDeliveryStore
	locations  *storage.InMemoryTargetingLocationStore
	agg        *Aggregator
}

func newFixture() *fixture {
	f := &fixture{
		campaigns:  storage.NewInMemoryCampaignStore(),
		customers:  storage.NewInMemoryCustomerStore(),
		deliveries: storage.NewInMemoryDeliveryStore(),
		locations:  storage.NewInMemoryTargetingLocationStore(),
	}
	f.agg = NewAggregator(f.campaigns, f.customers, f.deliveries, f.locations, nil, nil, zap.NewNop())
	return f
}

func (f *fixture) addDeliveries(t *testing.T, campaignID string, sentAt time.Time, sent, failed int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < sent+failed; i++ {
		status := models.DeliveryStatusSent
		if i >= sent {
			status = models.DeliveryStatusFailed
		}
		require.NoError(t, f.deliveries.Append(ctx, &models.Delivery{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			CustomerID: uuid.NewString(),
			Status:     status,
			SentAt:     sentAt,
			CreatedAt:  sentAt,
		}))
	}
}

func (f *fixture) addCampaign(t *testing.T, id string, locationID *string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, f.campaigns.Create(context.Background(), &models.Campaign{
		ID: id, Name: "Campaign " + id, Message: "hi",
		TargetingLocationID: locationID,
		Status:              models.CampaignStatusDraft,
		CreatedAt:           createdAt,
	}))
}

var day = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func TestCampaignStats(t *testing.T) {
	ctx := context.Background()

	t.Run("no deliveries reports zero rate", func(t *testing.T) {
		f := newFixture()
		f.addCampaign(t, "c1", nil, day)

		cs, err := f.agg.CampaignStats(ctx, "c1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, cs.TotalDeliveries)
		assert.Equal(t, 0.0, cs.SuccessRate)
		assert.Nil(t, cs.TargetingLocationName)
		assert.Nil(t, cs.TargetingRadiusM)
	})

	t.Run("success rate rounds to two decimals", func(t *testing.T) {
		f := newFixture()
		f.locations.Add(&models.TargetingLocation{ID: "loc-1", Name: "City Hall", RadiusM: 1000})
		f.addCampaign(t, "c1", ptr("loc-1"), day)
		f.addDeliveries(t, "c1", day.Add(10*time.Hour), 7, 3)

		cs, err := f.agg.CampaignStats(ctx, "c1")
		require.NoError(t, err)
		assert.EqualValues(t, 10, cs.TotalDeliveries)
		assert.EqualValues(t, 7, cs.SuccessfulDeliveries)
		assert.Equal(t, 70.0, cs.SuccessRate)
		require.NotNil(t, cs.TargetingLocationName)
		assert.Equal(t, "City Hall", *cs.TargetingLocationName)
		require.NotNil(t, cs.TargetingRadiusM)
		assert.Equal(t, 1000.0, *cs.TargetingRadiusM)
	})

	t.Run("repeating fraction", func(t *testing.T) {
		f := newFixture()
		f.addCampaign(t, "c1", nil, day)
		f.addDeliveries(t, "c1", day.Add(time.Hour), 1, 2)

		cs, err := f.agg.CampaignStats(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 33.33, cs.SuccessRate)
	})

	t.Run("missing campaign", func(t *testing.T) {
		f := newFixture()
		_, err := f.agg.CampaignStats(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("empty system is all zeros", func(t *testing.T) {
		f := newFixture()
		s, err := f.agg.DashboardSummary(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, s.TotalCampaigns)
		assert.EqualValues(t, 0, s.TotalMessages)
		assert.Equal(t, 0.0, s.ReachRate)
	})

	t.Run("reach rate rounds to one decimal", func(t *testing.T) {
		f := newFixture()
		f.addCampaign(t, "c1", nil, day)
		f.addCampaign(t, "c2", nil, day.Add(time.Minute))
		f.addDeliveries(t, "c1", day.Add(time.Hour), 2, 1)

		s, err := f.agg.DashboardSummary(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, s.TotalCampaigns)
		assert.EqualValues(t, 3, s.TotalMessages)
		assert.EqualValues(t, 2, s.ReachedCustomers)
		assert.Equal(t, 66.7, s.ReachRate)
	})
}

func TestHourlyDeliveries(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addCampaign(t, "c1", nil, day)

	yesterday := day.AddDate(0, 0, -1)

	// 07:00 grew 4 -> 6; 09:00 shrank 4 -> 2; 14:00 grew from zero.
	f.addDeliveries(t, "c1", yesterday.Add(7*time.Hour), 4, 0)
	f.addDeliveries(t, "c1", day.Add(7*time.Hour), 6, 0)
	f.addDeliveries(t, "c1", yesterday.Add(9*time.Hour), 4, 0)
	f.addDeliveries(t, "c1", day.Add(9*time.Hour), 2, 0)
	f.addDeliveries(t, "c1", day.Add(14*time.Hour), 5, 0)

	hourly, err := f.agg.HourlyDeliveries(ctx, day)
	require.NoError(t, err)
	require.Len(t, hourly, 24)

	assert.Equal(t, "00:00", hourly[0].Hour)
	assert.EqualValues(t, 0, hourly[0].Count)
	assert.Equal(t, 0.0, hourly[0].ChangeRate)

	assert.Equal(t, "07:00", hourly[7].Hour)
	assert.EqualValues(t, 6, hourly[7].Count)
	assert.Equal(t, 50.0, hourly[7].ChangeRate)

	assert.EqualValues(t, 2, hourly[9].Count)
	assert.Equal(t, -50.0, hourly[9].ChangeRate)

	// Growth from an empty yesterday bucket reports 0.0.
	assert.EqualValues(t, 5, hourly[14].Count)
	assert.Equal(t, 0.0, hourly[14].ChangeRate)
}

func TestCustomerDistribution(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	add := func(id, region string) {
		f.customers.Add(&models.Customer{ID: id, Name: id, RegionCode: region})
	}
	add("a", "1168010100") // Gangnam-gu
	add("b", "1168010200") // Gangnam-gu
	add("c", "1111010100") // Jongno-gu
	add("d", "")           // Other

	dist, err := f.agg.CustomerDistribution(ctx)
	require.NoError(t, err)
	require.Len(t, dist, 3)

	byRegion := make(map[string]RegionStat)
	var sum float64
	for _, rs := range dist {
		// Codes in the same district must collapse to one row.
		_, dup := byRegion[rs.Region]
		require.False(t, dup, "duplicate row for region %s", rs.Region)
		byRegion[rs.Region] = rs
		sum += rs.Percentage
	}

	assert.EqualValues(t, 2, byRegion["Gangnam-gu"].Count)
	assert.Equal(t, 50.0, byRegion["Gangnam-gu"].Percentage)
	assert.EqualValues(t, 1, byRegion["Jongno-gu"].Count)
	assert.Equal(t, 25.0, byRegion["Jongno-gu"].Percentage)
	assert.EqualValues(t, 1, byRegion[RegionOther].Count)
	assert.InDelta(t, 100.0, sum, 0.3)

	// Ordered by share, largest first.
	assert.Equal(t, "Gangnam-gu", dist[0].Region)
}

func TestRegionName(t *testing.T) {
	assert.Equal(t, "Gangnam-gu", RegionName("1168010100"))
	assert.Equal(t, "Jongno-gu", RegionName("11110"))
	assert.Equal(t, "Seoul (other)", RegionName("1199912345"))
	assert.Equal(t, "2641010100", RegionName("2641010100"))
	assert.Equal(t, RegionOther, RegionName(""))
	assert.Equal(t, RegionOther, RegionName("111"))
}

func TestRecentCampaigns(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.locations.Add(&models.TargetingLocation{ID: "loc-1", Name: "City Hall", RadiusM: 500})

	f.addCampaign(t, "old", nil, day.Add(-48*time.Hour))
	f.addCampaign(t, "mid", ptr("loc-1"), day.Add(-24*time.Hour))
	f.addCampaign(t, "new", ptr("loc-missing"), day)
	f.addDeliveries(t, "mid", day.Add(-23*time.Hour), 3, 1)

	t.Run("newest first with joined fields", func(t *testing.T) {
		recent, err := f.agg.RecentCampaigns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 3)

		assert.Equal(t, "new", recent[0].ID)
		assert.Equal(t, UnsetLocationLabel, recent[0].Location) // dangling reference tolerated
		assert.EqualValues(t, 0, recent[0].MessageCount)

		assert.Equal(t, "mid", recent[1].ID)
		assert.Equal(t, "City Hall", recent[1].Location)
		assert.EqualValues(t, 4, recent[1].MessageCount)

		assert.Equal(t, "old", recent[2].ID)
		assert.Equal(t, UnsetLocationLabel, recent[2].Location)
	})

	t.Run("limit truncates", func(t *testing.T) {
		recent, err := f.agg.RecentCampaigns(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "new", recent[0].ID)
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		recent, err := f.agg.RecentCampaigns(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, recent, 3)
	})
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 66.7, round1(66.666))
	assert.Equal(t, 33.33, round2(33.3333))
	assert.Equal(t, 0.0, round1(0))
}
