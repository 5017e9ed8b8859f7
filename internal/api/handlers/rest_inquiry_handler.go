package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"lastseat/server/internal/api/middleware"
	"lastseat/server/internal/models"
	"lastseat/server/internal/services"
	"lastseat/server/internal/utils"
)

// RestInquiryHandler handles the public lead forms and their back-office view.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService) *RestInquiryHandler {
	return &RestInquiryHandler{inquiryService: inquiryService}
}

type createInquiryRequest struct {
	Kind    models.InquiryKind `json:"kind" binding:"required"`
	Name    string             `json:"name" binding:"required"`
	Email   string             `json:"email" binding:"required,email"`
	Phone   string             `json:"phone"`
	Message string             `json:"message"`

	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	DepartureDate *time.Time `json:"departure_date"`
	ReturnDate    *time.Time `json:"return_date"`
	Passengers    int        `json:"passengers"`
	CabinClass    string     `json:"cabin_class"`

	VoucherAmount   float64 `json:"voucher_amount"`
	VoucherCurrency string  `json:"voucher_currency"`
	RecipientName   string  `json:"recipient_name"`
}

// Create handles POST /v1/inquiries (public, captcha-gated upstream)
func (h *RestInquiryHandler) Create(c *gin.Context) {
	var req createInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry payload: " + err.Error()})
		return
	}

	inquiry, err := h.inquiryService.Create(c.Request.Context(), services.CreateInquiryInput{
		Kind:            req.Kind,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Message:         req.Message,
		Origin:          req.Origin,
		Destination:     req.Destination,
		DepartureDate:   req.DepartureDate,
		ReturnDate:      req.ReturnDate,
		Passengers:      req.Passengers,
		CabinClass:      req.CabinClass,
		VoucherAmount:   req.VoucherAmount,
		VoucherCurrency: req.VoucherCurrency,
		RecipientName:   req.RecipientName,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit inquiry"})
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

// List handles GET /v1/admin/inquiries?kind=&status=&limit=
func (h *RestInquiryHandler) List(c *gin.Context) {
	filter := services.InquiryFilter{}
	if raw := c.Query("kind"); raw != "" {
		k := models.InquiryKind(raw)
		filter.Kind = &k
	}
	if raw := c.Query("status"); raw != "" {
		s := models.InquiryStatus(raw)
		if !models.ValidInquiryStatus(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown inquiry status filter"})
			return
		}
		filter.Status = &s
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)

	inquiries, err := h.inquiryService.List(c.Request.Context(), filter, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inquiries"})
		return
	}
	c.JSON(http.StatusOK, inquiries)
}

// Get handles GET /v1/admin/inquiries/:id
func (h *RestInquiryHandler) Get(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	inquiry, err := h.inquiryService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve inquiry"})
		}
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

type updateInquiryRequest struct {
	Status models.InquiryStatus `json:"status" binding:"required"`
	Notes  *string              `json:"notes"`
}

// UpdateStatus handles PATCH /v1/admin/inquiries/:id/status
func (h *RestInquiryHandler) UpdateStatus(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	var req updateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	inquiry, err := h.inquiryService.UpdateStatus(c.Request.Context(), middleware.ActorFromContext(c), id, req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inquiry"})
		}
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

// Delete handles DELETE /v1/admin/inquiries/:id
func (h *RestInquiryHandler) Delete(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	if err := h.inquiryService.Delete(c.Request.Context(), middleware.ActorFromContext(c), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete inquiry"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}
