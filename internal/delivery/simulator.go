// Package delivery simulates message delivery to a campaign's matched
// customer set.
package delivery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geocast/geocast/internal/metrics"
	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/stats"
	"github.com/geocast/geocast/internal/storage"
	"github.com/geocast/geocast/internal/targeting"
)

// DefaultConcurrency bounds the per-customer delivery workers.
const DefaultConcurrency = 8

// BatchResult summarizes one simulated delivery batch. Successes and
// Failures count delivery outcomes; FailedWrites lists customers whose
// delivery record could not be persisted at all.
type BatchResult struct {
	CampaignID   string   `json:"campaign_id"`
	TotalMatched int      `json:"total_matched"`
	Successes    int      `json:"successes"`
	Failures     int      `json:"failures"`
	FailedWrites []string `json:"failed_writes,omitempty"`
}

// PartialBatchFailure reports that some delivery writes failed while
// the rest of the batch went through. It accompanies a BatchResult, it
// does not replace one.
type PartialBatchFailure struct {
	CampaignID      string
	FailedCustomers []string
	Total           int
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("delivery batch for campaign %s: %d of %d writes failed",
		e.CampaignID, len(e.FailedCustomers), e.Total)
}

// Simulator generates delivery records for a campaign's matched set.
// It never changes campaign status; that transition belongs to the
// caller.
type Simulator struct {
	campaigns   storage.CampaignStore
	locations   storage.TargetingLocationStore
	customers   storage.CustomerStore
	deliveries  storage.DeliveryStore
	resolver    *targeting.Resolver
	policy      OutcomePolicy
	counters    *stats.Counters
	metrics     *metrics.Metrics
	logger      *zap.Logger
	concurrency int
	timeout     time.Duration
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithConcurrency bounds the number of parallel delivery writes.
func WithConcurrency(n int) SimulatorOption {
	return func(s *Simulator) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTimeout bounds the whole batch. Zero means no deadline.
func WithTimeout(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.timeout = d }
}

// WithCounters enables Redis hot counters for the dashboard.
func WithCounters(c *stats.Counters) SimulatorOption {
	return func(s *Simulator) { s.counters = c }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) SimulatorOption {
	return func(s *Simulator) { s.metrics = m }
}

// NewSimulator constructs a Simulator.
func NewSimulator(
	campaigns storage.CampaignStore,
	locations storage.TargetingLocationStore,
	customers storage.CustomerStore,
	deliveries storage.DeliveryStore,
	resolver *targeting.Resolver,
	policy OutcomePolicy,
	logger *zap.Logger,
	opts ...SimulatorOption,
) *Simulator {
	s := &Simulator{
		campaigns:   campaigns,
		locations:   locations,
		customers:   customers,
		deliveries:  deliveries,
		resolver:    resolver,
		policy:      policy,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate resolves the campaign's matched set and writes exactly one
// delivery record per matched customer. Preconditions are re-validated
// here even though the API layer checks them first: the campaign must
// exist, its status must permit sending, and a targeting location must
// be attached.
//
// Individual write failures do not abort the batch; when any occur the
// result is returned together with a *PartialBatchFailure.
func (s *Simulator) Simulate(ctx context.Context, campaignID string) (*BatchResult, error) {
	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if !campaign.Status.CanSend() {
		return nil, &models.InvalidStateError{
			CampaignID: campaign.ID,
			Status:     campaign.Status,
			Op:         "send",
		}
	}
	if campaign.TargetingLocationID == nil {
		return nil, &models.InvalidStateError{
			CampaignID: campaign.ID,
			Status:     campaign.Status,
			Op:         "send",
			Reason:     "no targeting location set",
		}
	}

	loc, err := s.locations.Get(ctx, *campaign.TargetingLocationID)
	if err != nil {
		return nil, err
	}

	all, err := s.customers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	matched := s.resolver.ResolveMatches(loc, all)

	s.logger.Info("delivery batch starting",
		zap.String("campaign_id", campaign.ID),
		zap.String("location_id", loc.ID),
		zap.Int("matched", len(matched)),
	)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()

	var successes, failures atomic.Int64
	var mu sync.Mutex
	var failedWrites []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, customer := range matched {
		customer := customer
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			status, errMsg := s.policy.Decide(customer, campaign)
			now := time.Now().UTC()
			d := &models.Delivery{
				ID:           uuid.NewString(),
				CampaignID:   campaign.ID,
				CustomerID:   customer.ID,
				Status:       status,
				SentAt:       now,
				ErrorMessage: errMsg,
				CreatedAt:    now,
			}

			if err := s.deliveries.Append(gctx, d); err != nil {
				s.logger.Error("delivery write failed",
					zap.String("campaign_id", campaign.ID),
					zap.String("customer_id", customer.ID),
					zap.Error(err),
				)
				if s.metrics != nil {
					s.metrics.RecordDeliveryWriteError(campaign.ID)
				}
				mu.Lock()
				failedWrites = append(failedWrites, customer.ID)
				mu.Unlock()
				// Keep going; the batch is not transactional.
				return nil
			}

			switch status {
			case models.DeliveryStatusSent:
				successes.Add(1)
			case models.DeliveryStatusFailed:
				failures.Add(1)
			}
			if s.metrics != nil {
				s.metrics.RecordDelivery(string(status), campaign.ID)
			}
			if s.counters != nil {
				if err := s.counters.RecordDelivery(gctx, d.SentAt, status); err != nil {
					s.logger.Warn("counter update failed", zap.Error(err))
				}
			}
			return nil
		})
	}

	waitErr := g.Wait()

	sort.Strings(failedWrites)
	result := &BatchResult{
		CampaignID:   campaign.ID,
		TotalMatched: len(matched),
		Successes:    int(successes.Load()),
		Failures:     int(failures.Load()),
		FailedWrites: failedWrites,
	}

	outcome := "completed"
	if waitErr != nil || len(failedWrites) > 0 {
		outcome = "partial"
	}
	if s.metrics != nil {
		s.metrics.RecordBatch(outcome, len(matched), time.Since(start))
	}

	s.logger.Info("delivery batch finished",
		zap.String("campaign_id", campaign.ID),
		zap.Int("matched", result.TotalMatched),
		zap.Int("successes", result.Successes),
		zap.Int("failures", result.Failures),
		zap.Int("failed_writes", len(failedWrites)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if waitErr != nil {
		return result, fmt.Errorf("delivery batch for campaign %s aborted: %w", campaign.ID, waitErr)
	}
	if len(failedWrites) > 0 {
		return result, &PartialBatchFailure{
			CampaignID:      campaign.ID,
			FailedCustomers: failedWrites,
			Total:           len(matched),
		}
	}
	return result, nil
}
