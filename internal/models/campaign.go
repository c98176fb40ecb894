package models

import (
	"errors"
	"fmt"
	"time"
)

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusSending   CampaignStatus = "SENDING"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusPaused    CampaignStatus = "PAUSED"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
)

// StatusMeta carries display and permission attributes for a campaign
// status. It is a plain lookup, kept apart from the transition rules
// so presentation concerns never leak into the state machine.
type StatusMeta struct {
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	CanSend     bool   `json:"can_send"`
	CanEdit     bool   `json:"can_edit"`
	CanDelete   bool   `json:"can_delete"`
}

var statusMeta = map[CampaignStatus]StatusMeta{
	CampaignStatusDraft:     {DisplayName: "Draft", Color: "#A0AEC0", CanSend: true, CanEdit: true, CanDelete: true},
	CampaignStatusSending:   {DisplayName: "Sending", Color: "#4299E1"},
	CampaignStatusCompleted: {DisplayName: "Completed", Color: "#48BB78", CanDelete: true},
	CampaignStatusPaused:    {DisplayName: "Paused", Color: "#F6AD55", CanSend: true, CanEdit: true, CanDelete: true},
	CampaignStatusCancelled: {DisplayName: "Cancelled", Color: "#E53E3E"},
}

// transitions is the campaign state machine: DRAFT -> SENDING -> COMPLETED,
// with PAUSED reachable from DRAFT/SENDING and CANCELLED terminal from any
// pre-COMPLETED state.
var transitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:   {CampaignStatusSending, CampaignStatusPaused, CampaignStatusCancelled},
	CampaignStatusSending: {CampaignStatusCompleted, CampaignStatusPaused, CampaignStatusCancelled},
	CampaignStatusPaused:  {CampaignStatusSending, CampaignStatusCancelled},
}

// Meta returns display and permission attributes for the status.
// Unknown statuses get the draft defaults with no permissions.
func (s CampaignStatus) Meta() StatusMeta {
	if m, ok := statusMeta[s]; ok {
		return m
	}
	return StatusMeta{DisplayName: string(s), Color: "#A0AEC0"}
}

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	_, ok := statusMeta[s]
	return ok
}

func (s CampaignStatus) CanSend() bool   { return s.Meta().CanSend }
func (s CampaignStatus) CanEdit() bool   { return s.Meta().CanEdit }
func (s CampaignStatus) CanDelete() bool { return s.Meta().CanDelete }

// CanTransition reports whether the state machine allows moving to the
// given status.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Campaign is a marketing campaign targeting customers around a single
// geographic location. Delivery records are created at send time and are
// never retroactively affected by later targeting changes.
type Campaign struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Message             string         `json:"message"`
	Description         string         `json:"description,omitempty"`
	ImageURL            string         `json:"image_url,omitempty"`
	ImageAlt            string         `json:"image_alt,omitempty"`
	TargetingLocationID *string        `json:"targeting_location_id,omitempty"`
	CompanyID           string         `json:"company_id,omitempty"`
	Status              CampaignStatus `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
}

func (c *Campaign) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Message == "" {
		return errors.New("message is required")
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("invalid status %q", c.Status)
	}
	return nil
}

// OptionalString is a tri-state patch field: absent (Set false), cleared
// (Set true, Value nil) or assigned (Set true, Value non-nil).
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns an OptionalString that assigns v.
func SetString(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// ClearString returns an OptionalString that clears the field.
func ClearString() OptionalString {
	return OptionalString{Set: true}
}

// CampaignPatch is a partial update. Pointer fields are updated when
// non-nil; tri-state fields distinguish "omitted" from "cleared".
type CampaignPatch struct {
	Name                *string
	Message             *string
	Description         *string
	TargetingLocationID OptionalString
	Status              *CampaignStatus
}

// Empty reports whether the patch changes nothing.
func (p CampaignPatch) Empty() bool {
	return p.Name == nil && p.Message == nil && p.Description == nil &&
		!p.TargetingLocationID.Set && p.Status == nil
}

// TouchesContent reports whether the patch modifies anything other than
// the status, which is what the edit permission guards.
func (p CampaignPatch) TouchesContent() bool {
	return p.Name != nil || p.Message != nil || p.Description != nil ||
		p.TargetingLocationID.Set
}

// Apply writes the patch onto the campaign. Status changes are not
// applied here; they go through the transition check in the service.
func (p CampaignPatch) Apply(c *Campaign) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Message != nil {
		c.Message = *p.Message
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.TargetingLocationID.Set {
		c.TargetingLocationID = p.TargetingLocationID.Value
	}
}

// InvalidStateError reports an operation attempted against a campaign
// whose status does not permit it.
type InvalidStateError struct {
	CampaignID string
	Status     CampaignStatus
	Op         string
	Reason     string
}

func (e *InvalidStateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("campaign %s: cannot %s: %s", e.CampaignID, e.Op, e.Reason)
	}
	return fmt.Sprintf("campaign %s: cannot %s in status %s", e.CampaignID, e.Op, e.Status)
}
