// Package targeting resolves which customers fall inside a campaign's
// targeting radius.
package targeting

import (
	"context"

	"github.com/geocast/geocast/internal/geo"
	"github.com/geocast/geocast/internal/metrics"
	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/storage"
)

const missReasonNoCoordinates = "no_coordinates"
const missReasonOutsideRadius = "outside_radius"

// DefaultSampleSize is the number of customers included in a preview.
const DefaultSampleSize = 5

// Resolver computes matched customer sets for targeting locations.
type Resolver struct {
	campaigns  storage.CampaignStore
	locations  storage.TargetingLocationStore
	customers  storage.CustomerStore
	metrics    *metrics.Metrics
	sampleSize int
}

// NewResolver constructs a Resolver over the given stores. metrics may
// be nil.
func NewResolver(campaigns storage.CampaignStore, locations storage.TargetingLocationStore, customers storage.CustomerStore, m *metrics.Metrics, sampleSize int) *Resolver {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Resolver{
		campaigns:  campaigns,
		locations:  locations,
		customers:  customers,
		metrics:    m,
		sampleSize: sampleSize,
	}
}

// ResolveMatches filters customers to those within the location's
// radius. Customers without coordinates are never matched. The result
// contains each customer at most once, and is deterministic for fixed
// inputs. A nil location matches nobody.
func (r *Resolver) ResolveMatches(loc *models.TargetingLocation, customers []*models.Customer) []*models.Customer {
	if loc == nil {
		return nil
	}

	center := loc.Center()
	seen := make(map[string]struct{}, len(customers))
	matched := make([]*models.Customer, 0, len(customers))

	for _, c := range customers {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		pos, ok := c.Position()
		if !ok {
			if r.metrics != nil {
				r.metrics.RecordTargetingMiss(loc.ID, missReasonNoCoordinates)
			}
			continue
		}
		if !geo.WithinRadius(center, loc.RadiusM, pos) {
			if r.metrics != nil {
				r.metrics.RecordTargetingMiss(loc.ID, missReasonOutsideRadius)
			}
			continue
		}

		if r.metrics != nil {
			r.metrics.RecordTargetingMatch(loc.ID)
		}
		matched = append(matched, c)
	}

	return matched
}

// Preview is a read-only projection of what a send would target.
type Preview struct {
	TargetingLocationName string             `json:"targeting_location_name"`
	RadiusM               float64            `json:"radius_m"`
	MatchedCount          int                `json:"matched_count"`
	SampleCustomers       []*models.Customer `json:"sample_customers"`
}

// Preview resolves the campaign's matched set without touching delivery
// state. A campaign without a targeting location previews zero matches;
// a missing campaign is a NotFound error.
func (r *Resolver) Preview(ctx context.Context, campaignID string) (*Preview, error) {
	campaign, err := r.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.TargetingLocationID == nil {
		return &Preview{SampleCustomers: []*models.Customer{}}, nil
	}

	loc, err := r.locations.Get(ctx, *campaign.TargetingLocationID)
	if err != nil {
		return nil, err
	}

	customers, err := r.customers.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := r.ResolveMatches(loc, customers)

	sample := matched
	if len(sample) > r.sampleSize {
		sample = sample[:r.sampleSize]
	}

	return &Preview{
		TargetingLocationName: loc.Name,
		RadiusM:               loc.RadiusM,
		MatchedCount:          len(matched),
		SampleCustomers:       sample,
	}, nil
}
