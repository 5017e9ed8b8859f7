package models

import (
	"time"

	"lastseat/server/internal/utils"
)

// Airport holds the coordinates the distance heuristic needs. Maintained by
// admins; keyed by IATA code.
type Airport struct {
	Base    `bson:",inline"`
	Code    string  `bson:"code" json:"code"` // IATA, uppercase, unique
	Name    string  `bson:"name" json:"name"`
	City    string  `bson:"city,omitempty" json:"city,omitempty"`
	Country string  `bson:"country,omitempty" json:"country,omitempty"`
	Lat     float64 `bson:"lat" json:"lat"`
	Lon     float64 `bson:"lon" json:"lon"`
}

// RoutePrice is an admin-set one-way price for a specific origin/destination
// pair. When present it overrides both the fare API and the heuristic.
type RoutePrice struct {
	Base        `bson:",inline"`
	Origin      string  `bson:"origin" json:"origin"`           // IATA
	Destination string  `bson:"destination" json:"destination"` // IATA
	Economy     float64 `bson:"economy" json:"economy"`
	Business    float64 `bson:"business" json:"business"`
	First       float64 `bson:"first" json:"first"`
	Currency    string  `bson:"currency" json:"currency"`

	UpdatedBy utils.UID `bson:"updated_by" json:"updated_by"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PriceForCabin returns the one-way price for the given cabin class.
func (r *RoutePrice) PriceForCabin(cabin string) float64 {
	switch cabin {
	case CabinBusiness:
		return r.Business
	case CabinFirst:
		return r.First
	default:
		return r.Economy
	}
}
