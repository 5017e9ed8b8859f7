package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/pricing"
)

// ErrUnknownAirport is returned when an estimate names an IATA code that has
// no airports record.
var ErrUnknownAirport = errors.New("unknown airport code")

// EstimateRequest is a public flight price estimate query.
type EstimateRequest struct {
	Origin      string // IATA
	Destination string // IATA
	CabinClass  string
	RoundTrip   bool
	Passengers  int
}

// Estimate is the answer, tagged with which source produced the price.
type Estimate struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	CabinClass  string  `json:"cabin_class"`
	RoundTrip   bool    `json:"round_trip"`
	Passengers  int     `json:"passengers"`
	Total       float64 `json:"total"`
	Currency    string  `json:"currency"`
	Source      string  `json:"source"` // "override", "fare_api" or "heuristic"
	DistanceKm  float64 `json:"distance_km,omitempty"`
}

// IPricingService defines the interface for price estimation and the admin
// reference data behind it.
type IPricingService interface {
	Estimate(ctx context.Context, req EstimateRequest) (*Estimate, error)

	UpsertAirport(ctx context.Context, airport *models.Airport) (*models.Airport, error)
	ListAirports(ctx context.Context) ([]models.Airport, error)
	DeleteAirport(ctx context.Context, code string) error

	UpsertRoutePrice(ctx context.Context, actor Actor, rp *models.RoutePrice) (*models.RoutePrice, error)
	ListRoutePrices(ctx context.Context) ([]models.RoutePrice, error)
	DeleteRoutePrice(ctx context.Context, actor Actor, origin, destination string) error
}

const (
	airportsCollection    = "airports"
	routePricesCollection = "route_prices"
)

// pricingService implements IPricingService.
type pricingService struct {
	db     *mongo.Database
	cfg    *config.Config
	fares  pricing.FareClient // nil when no fare API is configured
	audit  IAuditService
	logger *zap.Logger
}

// NewPricingService creates a new PricingService.
func NewPricingService(database *mongo.Database, cfg *config.Config, fares pricing.FareClient, audit IAuditService) IPricingService {
	return &pricingService{
		db:     database,
		cfg:    cfg,
		fares:  fares,
		audit:  audit,
		logger: logging.Get().Named("pricing"),
	}
}

func normalizeIATA(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Estimate resolves a price in precedence order: admin route override, then
// the live fare API, then the distance heuristic. Fare API failures degrade
// silently to the heuristic; an unknown airport is a hard error.
func (s *pricingService) Estimate(ctx context.Context, req EstimateRequest) (*Estimate, error) {
	req.Origin = normalizeIATA(req.Origin)
	req.Destination = normalizeIATA(req.Destination)
	if req.Origin == "" || req.Destination == "" || req.Origin == req.Destination {
		return nil, fmt.Errorf("%w: origin and destination must be two distinct airport codes", ErrInvalidInput)
	}
	if req.CabinClass == "" {
		req.CabinClass = models.CabinEconomy
	}
	if !models.ValidCabinClass(req.CabinClass) {
		return nil, fmt.Errorf("%w: unknown cabin class %q", ErrInvalidInput, req.CabinClass)
	}
	if req.Passengers < 1 {
		req.Passengers = 1
	}

	est := &Estimate{
		Origin:      req.Origin,
		Destination: req.Destination,
		CabinClass:  req.CabinClass,
		RoundTrip:   req.RoundTrip,
		Passengers:  req.Passengers,
	}

	// 1. Admin override.
	var override models.RoutePrice
	err := s.db.Collection(routePricesCollection).
		FindOne(ctx, bson.M{"origin": req.Origin, "destination": req.Destination}).
		Decode(&override)
	switch {
	case err == nil:
		perPassenger := override.PriceForCabin(req.CabinClass)
		if req.RoundTrip {
			perPassenger *= 2
		}
		est.Total = perPassenger * float64(req.Passengers)
		est.Currency = override.Currency
		est.Source = "override"
		return est, nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("error looking up route price %s-%s: %w", req.Origin, req.Destination, err)
	}

	// 2. Live fare API, if configured.
	if s.fares != nil {
		quote, err := s.fares.Quote(ctx, req.Origin, req.Destination, req.CabinClass, req.RoundTrip, req.Passengers)
		if err == nil {
			est.Total = quote.Total
			est.Currency = quote.Currency
			est.Source = "fare_api"
			return est, nil
		}
		s.logger.Warn("fare API failed, falling back to heuristic",
			zap.String("route", req.Origin+"-"+req.Destination), zap.Error(err))
	}

	// 3. Distance heuristic.
	origin, err := s.findAirport(ctx, req.Origin)
	if err != nil {
		return nil, err
	}
	dest, err := s.findAirport(ctx, req.Destination)
	if err != nil {
		return nil, err
	}

	distance := pricing.HaversineKm(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	total, err := pricing.Heuristic(pricing.EstimateRequest{
		DistanceKm: distance,
		CabinClass: req.CabinClass,
		RoundTrip:  req.RoundTrip,
		Passengers: req.Passengers,
	}, s.cfg.RatePerKmUSD)
	if err != nil {
		return nil, err
	}

	est.Total = total
	est.Currency = "USD"
	est.Source = "heuristic"
	est.DistanceKm = distance
	return est, nil
}

func (s *pricingService) findAirport(ctx context.Context, code string) (*models.Airport, error) {
	var airport models.Airport
	err := s.db.Collection(airportsCollection).FindOne(ctx, bson.M{"code": code}).Decode(&airport)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAirport, code)
		}
		return nil, fmt.Errorf("error finding airport %s: %w", code, err)
	}
	return &airport, nil
}

// UpsertAirport creates or replaces the airport record for its IATA code.
func (s *pricingService) UpsertAirport(ctx context.Context, airport *models.Airport) (*models.Airport, error) {
	airport.Code = normalizeIATA(airport.Code)
	if len(airport.Code) != 3 {
		return nil, fmt.Errorf("%w: airport code must be a 3-letter IATA code", ErrInvalidInput)
	}
	if airport.Lat < -90 || airport.Lat > 90 || airport.Lon < -180 || airport.Lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}

	airport.GenIDIfEmpty()
	update := bson.M{"$set": bson.M{
		"name":    airport.Name,
		"city":    airport.City,
		"country": airport.Country,
		"lat":     airport.Lat,
		"lon":     airport.Lon,
	}, "$setOnInsert": bson.M{"_id": airport.ID}}
	_, err := s.db.Collection(airportsCollection).UpdateOne(
		ctx, bson.M{"code": airport.Code}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("error upserting airport %s: %w", airport.Code, err)
	}
	return s.findAirport(ctx, airport.Code)
}

// ListAirports returns all airports sorted by code.
func (s *pricingService) ListAirports(ctx context.Context) ([]models.Airport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := s.db.Collection(airportsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing airports: %w", err)
	}
	defer cursor.Close(ctx)

	airports := []models.Airport{}
	if err := cursor.All(ctx, &airports); err != nil {
		return nil, fmt.Errorf("error decoding airports: %w", err)
	}
	return airports, nil
}

// DeleteAirport removes an airport by IATA code.
func (s *pricingService) DeleteAirport(ctx context.Context, code string) error {
	res, err := s.db.Collection(airportsCollection).DeleteOne(ctx, bson.M{"code": normalizeIATA(code)})
	if err != nil {
		return fmt.Errorf("error deleting airport %s: %w", code, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpsertRoutePrice creates or replaces the override for a route. Audited.
func (s *pricingService) UpsertRoutePrice(ctx context.Context, actor Actor, rp *models.RoutePrice) (*models.RoutePrice, error) {
	rp.Origin = normalizeIATA(rp.Origin)
	rp.Destination = normalizeIATA(rp.Destination)
	if len(rp.Origin) != 3 || len(rp.Destination) != 3 || rp.Origin == rp.Destination {
		return nil, fmt.Errorf("%w: origin and destination must be two distinct IATA codes", ErrInvalidInput)
	}
	if rp.Economy <= 0 || rp.Business <= 0 || rp.First <= 0 {
		return nil, fmt.Errorf("%w: all cabin prices must be positive", ErrInvalidInput)
	}
	if !models.ValidCurrency(rp.Currency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, rp.Currency)
	}

	rp.GenIDIfEmpty()
	rp.UpdatedBy = actor.ID
	rp.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"economy":    rp.Economy,
		"business":   rp.Business,
		"first":      rp.First,
		"currency":   rp.Currency,
		"updated_by": rp.UpdatedBy,
		"updated_at": rp.UpdatedAt,
	}, "$setOnInsert": bson.M{"_id": rp.ID}}
	// Concurrent first-time upserts on the same route can both miss the match
	// and collide on the unique (origin, destination) index; a retry then
	// matches and updates.
	err := db.Try(func() error {
		_, err := s.db.Collection(routePricesCollection).UpdateOne(
			ctx, bson.M{"origin": rp.Origin, "destination": rp.Destination}, update,
			options.Update().SetUpsert(true))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error upserting route price %s-%s: %w", rp.Origin, rp.Destination, err)
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditUpsertRoutePrice,
		EntityType: "route_price",
		EntityID:   rp.Origin + "-" + rp.Destination,
		Details: map[string]interface{}{
			"economy":  rp.Economy,
			"business": rp.Business,
			"first":    rp.First,
			"currency": rp.Currency,
		},
	})

	var saved models.RoutePrice
	err = s.db.Collection(routePricesCollection).
		FindOne(ctx, bson.M{"origin": rp.Origin, "destination": rp.Destination}).
		Decode(&saved)
	if err != nil {
		return nil, fmt.Errorf("error reloading route price %s-%s: %w", rp.Origin, rp.Destination, err)
	}
	return &saved, nil
}

// ListRoutePrices returns all route overrides sorted by route.
func (s *pricingService) ListRoutePrices(ctx context.Context) ([]models.RoutePrice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "origin", Value: 1}, {Key: "destination", Value: 1}})
	cursor, err := s.db.Collection(routePricesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing route prices: %w", err)
	}
	defer cursor.Close(ctx)

	prices := []models.RoutePrice{}
	if err := cursor.All(ctx, &prices); err != nil {
		return nil, fmt.Errorf("error decoding route prices: %w", err)
	}
	return prices, nil
}

// DeleteRoutePrice removes a route override. Audited.
func (s *pricingService) DeleteRoutePrice(ctx context.Context, actor Actor, origin, destination string) error {
	origin, destination = normalizeIATA(origin), normalizeIATA(destination)
	res, err := s.db.Collection(routePricesCollection).
		DeleteOne(ctx, bson.M{"origin": origin, "destination": destination})
	if err != nil {
		return fmt.Errorf("error deleting route price %s-%s: %w", origin, destination, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditDeleteRoutePrice,
		EntityType: "route_price",
		EntityID:   origin + "-" + destination,
	})
	return nil
}
