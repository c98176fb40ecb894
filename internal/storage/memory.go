package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocast/geocast/internal/models"
)

// InMemoryCampaignStore provides in-memory storage for campaigns.
// Used in development mode and tests.
type InMemoryCampaignStore struct {
	mu        sync.RWMutex
	campaigns map[string]*models.Campaign
}

func NewInMemoryCampaignStore() *InMemoryCampaignStore {
	return &InMemoryCampaignStore{campaigns: make(map[string]*models.Campaign)}
}

func (s *InMemoryCampaignStore) Get(ctx context.Context, id string) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, &NotFoundError{Entity: "campaign", ID: id}
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryCampaignStore) List(ctx context.Context) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryCampaignStore) Create(ctx context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *InMemoryCampaignStore) Update(ctx context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[c.ID]; !ok {
		return &NotFoundError{Entity: "campaign", ID: c.ID}
	}
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *InMemoryCampaignStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[id]; !ok {
		return &NotFoundError{Entity: "campaign", ID: id}
	}
	delete(s.campaigns, id)
	return nil
}

func (s *InMemoryCampaignStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.campaigns)), nil
}

// InMemoryCustomerStore provides in-memory storage for customers.
type InMemoryCustomerStore struct {
	mu        sync.RWMutex
	customers map[string]*models.Customer
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{customers: make(map[string]*models.Customer)}
}

// Add inserts a customer. Test and seed helper.
func (s *InMemoryCustomerStore) Add(c *models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
}

func (s *InMemoryCustomerStore) ListAll(ctx context.Context) ([]*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *InMemoryCustomerStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.customers)), nil
}

func (s *InMemoryCustomerStore) DistributionByRegion(ctx context.Context) ([]RegionCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, c := range s.customers {
		counts[c.RegionCode]++
	}

	dist := make([]RegionCount, 0, len(counts))
	for code, n := range counts {
		dist = append(dist, RegionCount{RegionCode: code, Count: n})
	}
	sort.Slice(dist, func(i, j int) bool {
		if dist[i].Count != dist[j].Count {
			return dist[i].Count > dist[j].Count
		}
		return dist[i].RegionCode < dist[j].RegionCode
	})
	return dist, nil
}

// InMemoryDeliveryStore provides in-memory storage for delivery records.
type InMemoryDeliveryStore struct {
	mu         sync.RWMutex
	deliveries []*models.Delivery
}

func NewInMemoryDeliveryStore() *InMemoryDeliveryStore {
	return &InMemoryDeliveryStore{}
}

func (s *InMemoryDeliveryStore) Append(ctx context.Context, d *models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *d
	s.deliveries = append(s.deliveries, &cp)
	return nil
}

func (s *InMemoryDeliveryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.deliveries)), nil
}

func (s *InMemoryDeliveryStore) CountByCampaign(ctx context.Context, campaignID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, d := range s.deliveries {
		if d.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryDeliveryStore) CountSuccessfulByCampaign(ctx context.Context, campaignID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, d := range s.deliveries {
		if d.CampaignID == campaignID && d.Status == models.DeliveryStatusSent {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryDeliveryStore) CountByStatus(ctx context.Context, status models.DeliveryStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, d := range s.deliveries {
		if d.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryDeliveryStore) CountDistinctCustomersByStatus(ctx context.Context, status models.DeliveryStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, d := range s.deliveries {
		if d.Status == status {
			seen[d.CustomerID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *InMemoryDeliveryStore) HourlyCountsByDate(ctx context.Context, day time.Time) ([]HourCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := startOfDay(day)
	end := start.Add(24 * time.Hour)

	byHour := make(map[int]int64)
	for _, d := range s.deliveries {
		sent := d.SentAt.UTC()
		if sent.Before(start) || !sent.Before(end) {
			continue
		}
		byHour[sent.Hour()]++
	}

	counts := make([]HourCount, 0, len(byHour))
	for h, n := range byHour {
		counts = append(counts, HourCount{Hour: h, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Hour < counts[j].Hour })
	return counts, nil
}

// InMemoryTargetingLocationStore provides in-memory storage for
// targeting locations.
type InMemoryTargetingLocationStore struct {
	mu        sync.RWMutex
	locations map[string]*models.TargetingLocation
}

func NewInMemoryTargetingLocationStore() *InMemoryTargetingLocationStore {
	return &InMemoryTargetingLocationStore{locations: make(map[string]*models.TargetingLocation)}
}

// Add inserts a targeting location. Test and seed helper.
func (s *InMemoryTargetingLocationStore) Add(l *models.TargetingLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.locations[l.ID] = &cp
}

func (s *InMemoryTargetingLocationStore) Get(ctx context.Context, id string) (*models.TargetingLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locations[id]
	if !ok {
		return nil, &NotFoundError{Entity: "targeting location", ID: id}
	}
	cp := *l
	return &cp, nil
}

func (s *InMemoryTargetingLocationStore) List(ctx context.Context) ([]*models.TargetingLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.TargetingLocation, 0, len(s.locations))
	for _, l := range s.locations {
		cp := *l
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *InMemoryTargetingLocationStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.locations)), nil
}
