package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lastseat/server/internal/models"
)

func TestHaversineKm(t *testing.T) {
	// Cairo (CAI) to London Heathrow (LHR): about 3510 km.
	d := HaversineKm(30.1219, 31.4056, 51.4700, -0.4543)
	assert.InDelta(t, 3510, d, 40)

	// Symmetric.
	back := HaversineKm(51.4700, -0.4543, 30.1219, 31.4056)
	assert.InDelta(t, d, back, 0.001)

	// Zero distance.
	assert.InDelta(t, 0, HaversineKm(30, 31, 30, 31), 0.0001)

	// Antipodal points are half the circumference apart.
	half := HaversineKm(0, 0, 0, 180)
	assert.InDelta(t, 20015, half, 10)
}

func TestHeuristic(t *testing.T) {
	base := EstimateRequest{
		DistanceKm: 1000,
		CabinClass: models.CabinEconomy,
		Passengers: 1,
	}

	econ, err := Heuristic(base, 0.11)
	require.NoError(t, err)
	assert.InDelta(t, 110.0, econ, 0.001)

	business := base
	business.CabinClass = models.CabinBusiness
	b, err := Heuristic(business, 0.11)
	require.NoError(t, err)
	assert.InDelta(t, 308.0, b, 0.001)

	first := base
	first.CabinClass = models.CabinFirst
	f, err := Heuristic(first, 0.11)
	require.NoError(t, err)
	assert.InDelta(t, 495.0, f, 0.001)

	roundTrip := base
	roundTrip.RoundTrip = true
	rt, err := Heuristic(roundTrip, 0.11)
	require.NoError(t, err)
	assert.InDelta(t, 209.0, rt, 0.001)

	family := base
	family.Passengers = 4
	fam, err := Heuristic(family, 0.11)
	require.NoError(t, err)
	assert.InDelta(t, 440.0, fam, 0.001)
}

func TestHeuristicMinimumFare(t *testing.T) {
	// A hop too short to cover the minimum is floored per passenger.
	short := EstimateRequest{
		DistanceKm: 100,
		CabinClass: models.CabinEconomy,
		Passengers: 3,
	}
	total, err := Heuristic(short, 0.11)
	require.NoError(t, err)
	assert.InDelta(t, 240.0, total, 0.001) // 80 x 3, not 11 x 3
}

func TestHeuristicValidation(t *testing.T) {
	_, err := Heuristic(EstimateRequest{DistanceKm: 1000, CabinClass: "Coach", Passengers: 1}, 0.11)
	assert.Error(t, err)

	_, err = Heuristic(EstimateRequest{DistanceKm: 1000, CabinClass: models.CabinEconomy, Passengers: 0}, 0.11)
	assert.Error(t, err)

	_, err = Heuristic(EstimateRequest{DistanceKm: 0, CabinClass: models.CabinEconomy, Passengers: 1}, 0.11)
	assert.Error(t, err)
}
