// Package campaign provides campaign lifecycle management over the
// campaign store.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geocast/geocast/internal/models"
	"github.com/geocast/geocast/internal/storage"
)

// Service encapsulates campaign CRUD and status transitions. It is
// intentionally thin; targeting and delivery live in their own
// packages.
type Service struct {
	campaigns storage.CampaignStore
	locations storage.TargetingLocationStore
	logger    *zap.Logger
}

// NewService constructs a Service backed by the given stores.
func NewService(campaigns storage.CampaignStore, locations storage.TargetingLocationStore, logger *zap.Logger) *Service {
	return &Service{campaigns: campaigns, locations: locations, logger: logger}
}

// CreateRequest carries the fields for a new campaign.
type CreateRequest struct {
	Name                string  `json:"name"`
	Message             string  `json:"message"`
	Description         string  `json:"description"`
	TargetingLocationID *string `json:"targeting_location_id"`
	CompanyID           string  `json:"company_id"`
}

// Create validates the request and stores a new DRAFT campaign. A
// referenced targeting location must exist; the campaign inherits its
// company when none is given.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Campaign, error) {
	c := &models.Campaign{
		ID:                  uuid.NewString(),
		Name:                req.Name,
		Message:             req.Message,
		Description:         req.Description,
		TargetingLocationID: req.TargetingLocationID,
		CompanyID:           req.CompanyID,
		Status:              models.CampaignStatusDraft,
		CreatedAt:           time.Now().UTC(),
	}

	if req.TargetingLocationID != nil {
		loc, err := s.locations.Get(ctx, *req.TargetingLocationID)
		if err != nil {
			return nil, err
		}
		if c.CompanyID == "" {
			c.CompanyID = loc.CompanyID
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign: %w", err)
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign created",
		zap.String("campaign_id", c.ID),
		zap.String("name", c.Name),
	)
	return c, nil
}

// Get returns a campaign by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Campaign, error) {
	return s.campaigns.Get(ctx, id)
}

// List returns all campaigns, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Campaign, error) {
	return s.campaigns.List(ctx)
}

// Update applies a partial update. Content edits require an editable
// status; status changes must follow the transition table. Changing the
// targeting location never touches already-written delivery records.
func (s *Service) Update(ctx context.Context, id string, patch models.CampaignPatch) (*models.Campaign, error) {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.TouchesContent() && !c.Status.CanEdit() {
		return nil, &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "edit"}
	}

	if patch.TargetingLocationID.Set && patch.TargetingLocationID.Value != nil {
		if _, err := s.locations.Get(ctx, *patch.TargetingLocationID.Value); err != nil {
			return nil, err
		}
	}

	patch.Apply(c)

	if patch.Status != nil && *patch.Status != c.Status {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q", *patch.Status)
		}
		if !c.Status.CanTransition(*patch.Status) {
			return nil, &models.InvalidStateError{
				CampaignID: c.ID,
				Status:     c.Status,
				Op:         "transition",
				Reason:     fmt.Sprintf("%s -> %s is not allowed", c.Status, *patch.Status),
			}
		}
		s.logger.Info("campaign status change",
			zap.String("campaign_id", c.ID),
			zap.String("from", string(c.Status)),
			zap.String("to", string(*patch.Status)),
		)
		c.Status = *patch.Status
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid campaign: %w", err)
	}
	if err := s.campaigns.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a campaign. SENDING and CANCELLED campaigns are never
// deleted; cancellation is an explicit status transition, not an
// implicit pre-delete step.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.Status.CanDelete() {
		return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "delete"}
	}
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("campaign deleted", zap.String("campaign_id", id))
	return nil
}

// CompleteSend advances a sendable campaign through SENDING to
// COMPLETED. Called by the API layer after a delivery batch; the
// simulator itself never touches campaign status.
func (s *Service) CompleteSend(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, next := range []models.CampaignStatus{models.CampaignStatusSending, models.CampaignStatusCompleted} {
		if !c.Status.CanTransition(next) {
			return nil, &models.InvalidStateError{
				CampaignID: c.ID,
				Status:     c.Status,
				Op:         "transition",
				Reason:     fmt.Sprintf("%s -> %s is not allowed", c.Status, next),
			}
		}
		c.Status = next
	}

	if err := s.campaigns.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("campaign completed", zap.String("campaign_id", c.ID))
	return c, nil
}

// IsNotFound reports whether err is a missing-record error from any
// store.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
