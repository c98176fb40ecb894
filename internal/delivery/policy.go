package delivery

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/geocast/geocast/internal/models"
)

// OutcomePolicy decides the outcome of a single simulated send. The
// engine never hardwires a random source: production injects a
// probabilistic policy, tests inject a deterministic one.
type OutcomePolicy interface {
	// Decide returns the delivery status for this customer and, for
	// failures, a short error message.
	Decide(customer *models.Customer, campaign *models.Campaign) (models.DeliveryStatus, string)
}

// PolicyFunc adapts a function to the OutcomePolicy interface.
type PolicyFunc func(customer *models.Customer, campaign *models.Campaign) (models.DeliveryStatus, string)

func (f PolicyFunc) Decide(customer *models.Customer, campaign *models.Campaign) (models.DeliveryStatus, string) {
	return f(customer, campaign)
}

// AlwaysSucceed returns a policy that marks every delivery SENT.
func AlwaysSucceed() OutcomePolicy {
	return PolicyFunc(func(*models.Customer, *models.Campaign) (models.DeliveryStatus, string) {
		return models.DeliveryStatusSent, ""
	})
}

var failureReasons = []string{
	"network timeout",
	"invalid phone number",
	"rate limit exceeded",
	"service temporarily unavailable",
	"recipient unreachable",
}

// RandomOutcome is a uniform random policy with a configurable success
// rate. Safe for concurrent use.
type RandomOutcome struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

// NewRandomOutcome constructs a RandomOutcome. successRate is clamped
// to [0, 1]. The seed makes runs reproducible when fixed.
func NewRandomOutcome(successRate float64, seed int64) *RandomOutcome {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &RandomOutcome{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

func (p *RandomOutcome) Decide(customer *models.Customer, campaign *models.Campaign) (models.DeliveryStatus, string) {
	p.mu.Lock()
	roll := p.rng.Float64()
	reason := failureReasons[p.rng.Intn(len(failureReasons))]
	p.mu.Unlock()

	if roll < p.successRate {
		return models.DeliveryStatusSent, ""
	}
	return models.DeliveryStatusFailed, fmt.Sprintf("failed to send to %s: %s", customer.ID, reason)
}
