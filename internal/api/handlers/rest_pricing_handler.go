package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"lastseat/server/internal/api/middleware"
	"lastseat/server/internal/models"
	"lastseat/server/internal/services"
)

// RestPricingHandler handles the public estimate endpoint and the admin
// reference data behind it (airports, route price overrides).
type RestPricingHandler struct {
	pricingService services.IPricingService
}

// NewRestPricingHandler creates a new RestPricingHandler.
func NewRestPricingHandler(pricingService services.IPricingService) *RestPricingHandler {
	return &RestPricingHandler{pricingService: pricingService}
}

// Estimate handles GET /v1/flights/estimate?origin=&destination=&cabin=&round_trip=&passengers=
func (h *RestPricingHandler) Estimate(c *gin.Context) {
	passengers, _ := strconv.Atoi(c.DefaultQuery("passengers", "1"))
	roundTrip, _ := strconv.ParseBool(c.DefaultQuery("round_trip", "false"))

	estimate, err := h.pricingService.Estimate(c.Request.Context(), services.EstimateRequest{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		CabinClass:  c.Query("cabin"),
		RoundTrip:   roundTrip,
		Passengers:  passengers,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnknownAirport):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute estimate"})
		}
		return
	}
	c.JSON(http.StatusOK, estimate)
}

type upsertAirportRequest struct {
	Code    string  `json:"code" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// UpsertAirport handles PUT /v1/admin/airports
func (h *RestPricingHandler) UpsertAirport(c *gin.Context) {
	var req upsertAirportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid airport payload: " + err.Error()})
		return
	}

	airport, err := h.pricingService.UpsertAirport(c.Request.Context(), &models.Airport{
		Code:    req.Code,
		Name:    req.Name,
		City:    req.City,
		Country: req.Country,
		Lat:     req.Lat,
		Lon:     req.Lon,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save airport"})
		return
	}
	c.JSON(http.StatusOK, airport)
}

// ListAirports handles GET /v1/admin/airports
func (h *RestPricingHandler) ListAirports(c *gin.Context) {
	airports, err := h.pricingService.ListAirports(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list airports"})
		return
	}
	c.JSON(http.StatusOK, airports)
}

// DeleteAirport handles DELETE /v1/admin/airports/:code
func (h *RestPricingHandler) DeleteAirport(c *gin.Context) {
	err := h.pricingService.DeleteAirport(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Airport not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete airport"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

type upsertRoutePriceRequest struct {
	Origin      string  `json:"origin" binding:"required"`
	Destination string  `json:"destination" binding:"required"`
	Economy     float64 `json:"economy" binding:"required,gt=0"`
	Business    float64 `json:"business" binding:"required,gt=0"`
	First       float64 `json:"first" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required"`
}

// UpsertRoutePrice handles PUT /v1/admin/flight-prices
func (h *RestPricingHandler) UpsertRoutePrice(c *gin.Context) {
	var req upsertRoutePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route price payload: " + err.Error()})
		return
	}

	rp, err := h.pricingService.UpsertRoutePrice(c.Request.Context(), middleware.ActorFromContext(c), &models.RoutePrice{
		Origin:      req.Origin,
		Destination: req.Destination,
		Economy:     req.Economy,
		Business:    req.Business,
		First:       req.First,
		Currency:    req.Currency,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save route price"})
		return
	}
	c.JSON(http.StatusOK, rp)
}

// ListRoutePrices handles GET /v1/admin/flight-prices
func (h *RestPricingHandler) ListRoutePrices(c *gin.Context) {
	prices, err := h.pricingService.ListRoutePrices(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list route prices"})
		return
	}
	c.JSON(http.StatusOK, prices)
}

// DeleteRoutePrice handles DELETE /v1/admin/flight-prices/:origin/:destination
func (h *RestPricingHandler) DeleteRoutePrice(c *gin.Context) {
	err := h.pricingService.DeleteRoutePrice(c.Request.Context(), middleware.ActorFromContext(c), c.Param("origin"), c.Param("destination"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route price not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete route price"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
