package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/models"
	"lastseat/server/internal/pricing"
	"lastseat/server/internal/utils"
)

func setupTestDBPricing(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName, "airports", "route_prices", "audit_log")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

// stubFareClient returns a fixed quote or error.
type stubFareClient struct {
	quote *pricing.FareQuote
	err   error
}

func (s *stubFareClient) Quote(_ context.Context, _, _, _ string, _ bool, _ int) (*pricing.FareQuote, error) {
	return s.quote, s.err
}

func seedAirports(t *testing.T, svc IPricingService) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.UpsertAirport(ctx, &models.Airport{Code: "CAI", Name: "Cairo International", Lat: 30.1219, Lon: 31.4056})
	require.NoError(t, err)
	_, err = svc.UpsertAirport(ctx, &models.Airport{Code: "LHR", Name: "London Heathrow", Lat: 51.4700, Lon: -0.4543})
	require.NoError(t, err)
}

func TestPricingService_EstimateHeuristic(t *testing.T) {
	database := setupTestDBPricing(t, "testdb_pricing_heuristic")
	cfg := &config.Config{RatePerKmUSD: 0.11}
	svc := NewPricingService(database, cfg, nil, NewAuditService(database, nil))
	seedAirports(t, svc)
	ctx := context.Background()

	est, err := svc.Estimate(ctx, EstimateRequest{
		Origin: "cai", Destination: "LHR",
		CabinClass: models.CabinEconomy, Passengers: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", est.Source)
	assert.Equal(t, "USD", est.Currency)
	// Cairo-London great-circle distance is about 3510 km.
	assert.InDelta(t, 3510, est.DistanceKm, 40)
	assert.InDelta(t, est.DistanceKm*0.11, est.Total, 5)

	// Business round trip for two scales deterministically.
	est2, err := svc.Estimate(ctx, EstimateRequest{
		Origin: "CAI", Destination: "LHR",
		CabinClass: models.CabinBusiness, RoundTrip: true, Passengers: 2,
	})
	require.NoError(t, err)
	assert.InDelta(t, est.Total*2.8*1.9*2, est2.Total, 1)
}

func TestPricingService_OverrideWins(t *testing.T) {
	database := setupTestDBPricing(t, "testdb_pricing_override")
	cfg := &config.Config{RatePerKmUSD: 0.11}
	// Fare client would answer, but the override takes precedence.
	fares := &stubFareClient{quote: &pricing.FareQuote{Total: 9999, Currency: "USD"}}
	svc := NewPricingService(database, cfg, fares, NewAuditService(database, nil))
	seedAirports(t, svc)
	ctx := context.Background()
	actor := testActor()

	_, err := svc.UpsertRoutePrice(ctx, actor, &models.RoutePrice{
		Origin: "CAI", Destination: "LHR",
		Economy: 300, Business: 900, First: 1500, Currency: "GBP",
	})
	require.NoError(t, err)

	est, err := svc.Estimate(ctx, EstimateRequest{
		Origin: "CAI", Destination: "LHR",
		CabinClass: models.CabinBusiness, RoundTrip: true, Passengers: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "override", est.Source)
	assert.Equal(t, "GBP", est.Currency)
	// 900 one-way x 2 for round trip x 2 passengers.
	assert.InDelta(t, 3600, est.Total, 0.001)
}

func TestPricingService_FareAPIThenFallback(t *testing.T) {
	database := setupTestDBPricing(t, "testdb_pricing_fare_fallback")
	cfg := &config.Config{RatePerKmUSD: 0.11}
	ctx := context.Background()

	// Healthy fare API is used when no override exists.
	healthy := NewPricingService(database, cfg,
		&stubFareClient{quote: &pricing.FareQuote{Total: 777.5, Currency: "EUR"}},
		NewAuditService(database, nil))
	seedAirports(t, healthy)

	est, err := healthy.Estimate(ctx, EstimateRequest{Origin: "CAI", Destination: "LHR", Passengers: 1})
	require.NoError(t, err)
	assert.Equal(t, "fare_api", est.Source)
	assert.InDelta(t, 777.5, est.Total, 0.001)
	assert.Equal(t, "EUR", est.Currency)

	// A failing fare API silently degrades to the heuristic.
	broken := NewPricingService(database, cfg,
		&stubFareClient{err: pricing.ErrFareUnavailable},
		NewAuditService(database, nil))

	est2, err := broken.Estimate(ctx, EstimateRequest{Origin: "CAI", Destination: "LHR", Passengers: 1})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", est2.Source)
}

func TestPricingService_UnknownAirport(t *testing.T) {
	database := setupTestDBPricing(t, "testdb_pricing_unknown_airport")
	cfg := &config.Config{RatePerKmUSD: 0.11}
	svc := NewPricingService(database, cfg, nil, NewAuditService(database, nil))
	seedAirports(t, svc)
	ctx := context.Background()

	_, err := svc.Estimate(ctx, EstimateRequest{Origin: "CAI", Destination: "ZZZ", Passengers: 1})
	assert.True(t, errors.Is(err, ErrUnknownAirport))

	_, err = svc.Estimate(ctx, EstimateRequest{Origin: "CAI", Destination: "CAI", Passengers: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPricingService_RoutePriceCRUD(t *testing.T) {
	database := setupTestDBPricing(t, "testdb_pricing_route_crud")
	cfg := &config.Config{RatePerKmUSD: 0.11}
	svc := NewPricingService(database, cfg, nil, NewAuditService(database, nil))
	ctx := context.Background()
	actor := testActor()

	rp, err := svc.UpsertRoutePrice(ctx, actor, &models.RoutePrice{
		Origin: "cai", Destination: "jfk",
		Economy: 500, Business: 1400, First: 2500, Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "CAI", rp.Origin)
	assert.Equal(t, actor.ID, rp.UpdatedBy)

	// Upserting the same route replaces, not duplicates.
	_, err = svc.UpsertRoutePrice(ctx, actor, &models.RoutePrice{
		Origin: "CAI", Destination: "JFK",
		Economy: 550, Business: 1450, First: 2600, Currency: "USD",
	})
	require.NoError(t, err)

	prices, err := svc.ListRoutePrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.InDelta(t, 550, prices[0].Economy, 0.001)

	require.NoError(t, svc.DeleteRoutePrice(ctx, actor, "CAI", "JFK"))
	err = svc.DeleteRoutePrice(ctx, actor, "CAI", "JFK")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	// Validation.
	_, err = svc.UpsertRoutePrice(ctx, actor, &models.RoutePrice{
		Origin: "CAI", Destination: "CAI",
		Economy: 1, Business: 1, First: 1, Currency: "USD",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPricingService_AirportCRUD(t *testing.T) {
	database := setupTestDBPricing(t, "testdb_pricing_airport_crud")
	cfg := &config.Config{RatePerKmUSD: 0.11}
	svc := NewPricingService(database, cfg, nil, NewAuditService(database, nil))
	ctx := context.Background()

	_, err := svc.UpsertAirport(ctx, &models.Airport{Code: "cdg", Name: "Charles de Gaulle", Lat: 49.0097, Lon: 2.5479})
	require.NoError(t, err)

	// Replaces in place.
	updated, err := svc.UpsertAirport(ctx, &models.Airport{Code: "CDG", Name: "Paris Charles de Gaulle", Lat: 49.0097, Lon: 2.5479})
	require.NoError(t, err)
	assert.Equal(t, "Paris Charles de Gaulle", updated.Name)

	airports, err := svc.ListAirports(ctx)
	require.NoError(t, err)
	assert.Len(t, airports, 1)

	require.NoError(t, svc.DeleteAirport(ctx, "CDG"))
	err = svc.DeleteAirport(ctx, "CDG")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, err = svc.UpsertAirport(ctx, &models.Airport{Code: "TOOLONG", Name: "Bad"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.UpsertAirport(ctx, &models.Airport{Code: "AAA", Name: "Bad", Lat: 123})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
