package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocast/geocast/internal/models"
)

// ErrNotFound is the sentinel for missing records. Implementations wrap
// it in a NotFoundError carrying the entity kind and id.
var ErrNotFound = errors.New("not found")

// NotFoundError identifies which record was missing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// =============================================
// CAMPAIGN STORE
// =============================================

// CampaignStore defines persistence for campaigns.
type CampaignStore interface {
	Get(ctx context.Context, id string) (*models.Campaign, error)
	// List returns all campaigns ordered by creation time, newest first.
	List(ctx context.Context) ([]*models.Campaign, error)
	Create(ctx context.Context, c *models.Campaign) error
	Update(ctx context.Context, c *models.Campaign) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// =============================================
// CUSTOMER STORE
// =============================================

// RegionCount is one row of the per-region customer distribution.
type RegionCount struct {
	RegionCode string
	Count      int64
}

// CustomerStore defines read access to the customer population.
type CustomerStore interface {
	ListAll(ctx context.Context) ([]*models.Customer, error)
	Count(ctx context.Context) (int64, error)
	// DistributionByRegion returns customer counts grouped by region
	// code, largest group first.
	DistributionByRegion(ctx context.Context) ([]RegionCount, error)
}

// =============================================
// DELIVERY STORE
// =============================================

// HourCount is one hour bucket of delivery volume.
type HourCount struct {
	Hour  int
	Count int64
}

// DeliveryStore defines persistence for delivery records. Records are
// append-only; nothing in the engine ever mutates a written delivery.
type DeliveryStore interface {
	Append(ctx context.Context, d *models.Delivery) error
	Count(ctx context.Context) (int64, error)
	CountByCampaign(ctx context.Context, campaignID string) (int64, error)
	CountSuccessfulByCampaign(ctx context.Context, campaignID string) (int64, error)
	CountByStatus(ctx context.Context, status models.DeliveryStatus) (int64, error)
	CountDistinctCustomersByStatus(ctx context.Context, status models.DeliveryStatus) (int64, error)
	// HourlyCountsByDate buckets deliveries sent on the given calendar
	// day (UTC) into hour-of-day counts. Hours with no deliveries are
	// omitted.
	HourlyCountsByDate(ctx context.Context, day time.Time) ([]HourCount, error)
}

// =============================================
// TARGETING LOCATION STORE
// =============================================

// TargetingLocationStore defines read access to targeting locations.
type TargetingLocationStore interface {
	Get(ctx context.Context, id string) (*models.TargetingLocation, error)
	List(ctx context.Context) ([]*models.TargetingLocation, error)
	Count(ctx context.Context) (int64, error)
}
