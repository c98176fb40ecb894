package models

import (
	"time"

	"github.com/geocast/geocast/internal/geo"
)

// Customer is a targetable recipient. Coordinates are optional: a
// customer without a position is simply never matched by radius
// targeting.
type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	RegionCode string    `json:"region_code,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Position returns the customer's coordinate and whether one is set.
func (c *Customer) Position() (geo.Point, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *c.Latitude, Lon: *c.Longitude}, true
}
