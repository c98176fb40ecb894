package models

import (
	"errors"
	"time"

	"github.com/geocast/geocast/internal/geo"
)

// TargetingLocation is a circular geographic target: a center point and
// a radius in meters. It is read-only input to the targeting engine.
type TargetingLocation struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id,omitempty"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	RadiusM   float64   `json:"radius_m"`
	CreatedAt time.Time `json:"created_at"`
}

// Center returns the location's center point.
func (l *TargetingLocation) Center() geo.Point {
	return geo.Point{Lat: l.Latitude, Lon: l.Longitude}
}

func (l *TargetingLocation) Validate() error {
	if l.ID == "" {
		return errors.New("id is required")
	}
	if l.Name == "" {
		return errors.New("name is required")
	}
	if l.RadiusM < 0 {
		return errors.New("radius_m must be >= 0")
	}
	return nil
}
