package models

import "time"

type DeliveryStatus string

const (
	DeliveryStatusSent    DeliveryStatus = "SENT"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
	DeliveryStatusPending DeliveryStatus = "PENDING"
)

// Delivery records one simulated message send to one customer. Exactly
// one record exists per (campaign, matched customer) pair; records are
// immutable once written.
type Delivery struct {
	ID           string         `json:"id"`
	CampaignID   string         `json:"campaign_id"`
	CustomerID   string         `json:"customer_id"`
	Status       DeliveryStatus `json:"status"`
	SentAt       time.Time      `json:"sent_at"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
