// Package pricing computes flight price estimates: a distance-based heuristic
// plus a client for the external fare API.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lastseat/server/internal/models"
)

// Multipliers applied on top of the per-km economy rate. Calibrated against
// historical quotes, not airline tariffs.
var (
	cabinMultipliers = map[string]decimal.Decimal{
		models.CabinEconomy:  decimal.NewFromInt(1),
		models.CabinBusiness: decimal.RequireFromString("2.8"),
		models.CabinFirst:    decimal.RequireFromString("4.5"),
	}
	roundTripMultiplier = decimal.RequireFromString("1.9")
	minimumFareUSD      = decimal.NewFromInt(80)
)

// EstimateRequest is one estimate computation for a route already resolved to
// coordinates.
type EstimateRequest struct {
	DistanceKm float64
	CabinClass string
	RoundTrip  bool
	Passengers int
}

// Heuristic prices a trip from great-circle distance: km × per-km USD rate ×
// cabin multiplier, times the round-trip multiplier when a return leg exists,
// times passengers, floored at a minimum fare per passenger. Result is in USD
// rounded to cents.
func Heuristic(req EstimateRequest, ratePerKmUSD float64) (float64, error) {
	cabin, ok := cabinMultipliers[req.CabinClass]
	if !ok {
		return 0, fmt.Errorf("unknown cabin class %q", req.CabinClass)
	}
	if req.Passengers < 1 {
		return 0, fmt.Errorf("passengers must be at least 1, got %d", req.Passengers)
	}
	if req.DistanceKm <= 0 {
		return 0, fmt.Errorf("distance must be positive, got %f", req.DistanceKm)
	}

	perPassenger := decimal.NewFromFloat(req.DistanceKm).
		Mul(decimal.NewFromFloat(ratePerKmUSD)).
		Mul(cabin)
	if req.RoundTrip {
		perPassenger = perPassenger.Mul(roundTripMultiplier)
	}
	if perPassenger.LessThan(minimumFareUSD) {
		perPassenger = minimumFareUSD
	}

	total := perPassenger.Mul(decimal.NewFromInt(int64(req.Passengers))).Round(2)
	f, _ := total.Float64()
	return f, nil
}
