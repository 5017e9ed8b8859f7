package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"lastseat/server/internal/api/middleware"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/services"
	"lastseat/server/internal/tasks"
	"lastseat/server/internal/utils"
)

// RestInvoiceHandler handles back-office invoice CRUD and the dashboard.
type RestInvoiceHandler struct {
	invoiceService services.IInvoiceService
	enqueuer       services.TaskEnqueuer
	logger         *zap.Logger
}

// NewRestInvoiceHandler creates a new RestInvoiceHandler.
func NewRestInvoiceHandler(invoiceService services.IInvoiceService, enqueuer services.TaskEnqueuer) *RestInvoiceHandler {
	return &RestInvoiceHandler{
		invoiceService: invoiceService,
		enqueuer:       enqueuer,
		logger:         logging.Get().Named("handlers.invoices"),
	}
}

type createInvoiceRequest struct {
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	CustomerPhone string `json:"customer_phone" binding:"required"`

	Origin        string            `json:"origin" binding:"required"`
	Destination   string            `json:"destination" binding:"required"`
	DepartureDate time.Time         `json:"departure_date" binding:"required"`
	ReturnDate    *time.Time        `json:"return_date"`
	Passengers    int               `json:"passengers" binding:"required,min=1"`
	CabinClass    string            `json:"cabin_class" binding:"required"`
	OutboundLeg   *models.FlightLeg `json:"outbound_leg"`
	ReturnLeg     *models.FlightLeg `json:"return_leg"`

	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"required"`
	Notes    string  `json:"notes"`
}

func (r createInvoiceRequest) input() services.CreateInvoiceInput {
	return services.CreateInvoiceInput{
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Origin:        r.Origin,
		Destination:   r.Destination,
		DepartureDate: r.DepartureDate,
		ReturnDate:    r.ReturnDate,
		Passengers:    r.Passengers,
		CabinClass:    r.CabinClass,
		OutboundLeg:   r.OutboundLeg,
		ReturnLeg:     r.ReturnLeg,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Notes:         r.Notes,
	}
}

// Create handles POST /v1/admin/invoices
func (h *RestInvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice payload: " + err.Error()})
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), middleware.ActorFromContext(c), req.input())
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	// Email the payment link to the customer off the request path.
	if h.enqueuer != nil {
		task := tasks.NewTask(tasks.TypePaymentLinkEmail, tasks.InvoiceEmailPayload{InvoiceNumber: invoice.InvoiceNumber})
		if _, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(10)); err != nil {
			h.logger.Error("failed to enqueue payment link email",
				zap.String("invoice_number", invoice.InvoiceNumber), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, invoice)
}

// List handles GET /v1/admin/invoices?status=&limit=
func (h *RestInvoiceHandler) List(c *gin.Context) {
	var status *models.PaymentStatus
	if raw := c.Query("status"); raw != "" {
		s := models.PaymentStatus(raw)
		if !models.ValidPaymentStatus(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment status filter"})
			return
		}
		status = &s
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)

	invoices, err := h.invoiceService.List(c.Request.Context(), status, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invoices"})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// Get handles GET /v1/admin/invoices/:id
func (h *RestInvoiceHandler) Get(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}

	invoice, err := h.invoiceService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve invoice"})
		}
		return
	}
	c.JSON(http.StatusOK, invoice)
}

type updateInvoiceRequest struct {
	createInvoiceRequest
	Version int64 `json:"version" binding:"required,min=1"`
}

// Update handles PUT /v1/admin/invoices/:id - a full replace of the editable
// invoice content. Status changes go through UpdateStatus.
func (h *RestInvoiceHandler) Update(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice payload: " + err.Error()})
		return
	}

	invoice, err := h.invoiceService.UpdateDetails(c.Request.Context(), middleware.ActorFromContext(c), id, req.input(), req.Version)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Invoice was modified by someone else, reload and retry"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoice"})
		}
		return
	}
	c.JSON(http.StatusOK, invoice)
}

type updateStatusRequest struct {
	Status  models.PaymentStatus `json:"status" binding:"required"`
	Version int64                `json:"version" binding:"required,min=1"`
}

// UpdateStatus handles PATCH /v1/admin/invoices/:id/status
func (h *RestInvoiceHandler) UpdateStatus(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status and version are required"})
		return
	}
	if !models.ValidPaymentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment status"})
		return
	}

	invoice, err := h.invoiceService.UpdateStatus(c.Request.Context(), middleware.ActorFromContext(c), id, req.Status, req.Version)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		case errors.Is(err, services.ErrIllegalTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Invoice is already in that status"})
		case errors.Is(err, services.ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "Invoice was modified by someone else, reload and retry"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoice status"})
		}
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// Delete handles DELETE /v1/admin/invoices/:id
func (h *RestInvoiceHandler) Delete(c *gin.Context) {
	id, err := utils.ParseUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID format"})
		return
	}

	err = h.invoiceService.Delete(c.Request.Context(), middleware.ActorFromContext(c), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete invoice"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard handles GET /v1/admin/dashboard
func (h *RestInvoiceHandler) Dashboard(c *gin.Context) {
	stats, err := h.invoiceService.DashboardStats(c.Request.Context(), time.Now().UTC())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dashboard stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
