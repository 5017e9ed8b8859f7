package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"lastseat/server/internal/config"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/payments"
	"lastseat/server/internal/services"
	"lastseat/server/internal/tasks"
)

// RestPayHandler serves the unauthenticated customer payment flow: the token
// is the sole credential for everything here.
type RestPayHandler struct {
	invoiceService services.IInvoiceService
	gateway        payments.Gateway
	enqueuer       services.TaskEnqueuer
	cfg            *config.Config
	logger         *zap.Logger
}

// NewRestPayHandler creates a new RestPayHandler.
func NewRestPayHandler(invoiceService services.IInvoiceService, gateway payments.Gateway, enqueuer services.TaskEnqueuer, cfg *config.Config) *RestPayHandler {
	return &RestPayHandler{
		invoiceService: invoiceService,
		gateway:        gateway,
		enqueuer:       enqueuer,
		cfg:            cfg,
		logger:         logging.Get().Named("handlers.pay"),
	}
}

// bankDetails is what the payment page shows for the manual transfer path.
type bankDetails struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
}

// paymentView is the customer-facing projection of an invoice. No admin
// provenance, no internal IDs.
type paymentView struct {
	InvoiceNumber string                `json:"invoice_number"`
	CustomerName  string                `json:"customer_name"`
	Origin        string                `json:"origin"`
	Destination   string                `json:"destination"`
	DepartureDate time.Time             `json:"departure_date"`
	ReturnDate    *time.Time            `json:"return_date,omitempty"`
	Passengers    int                   `json:"passengers"`
	CabinClass    string                `json:"cabin_class"`
	OutboundLeg   *models.FlightLeg     `json:"outbound_leg,omitempty"`
	ReturnLeg     *models.FlightLeg     `json:"return_leg,omitempty"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	PaymentStatus models.PaymentStatus  `json:"payment_status"`
	PaymentMethod *models.PaymentMethod `json:"payment_method,omitempty"`
	PaidAt        *time.Time            `json:"paid_at,omitempty"`
	BankDetails   *bankDetails          `json:"bank_details,omitempty"`
}

func (h *RestPayHandler) view(invoice *models.Invoice) paymentView {
	v := paymentView{
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerName:  invoice.CustomerName,
		Origin:        invoice.Origin,
		Destination:   invoice.Destination,
		DepartureDate: invoice.DepartureDate,
		ReturnDate:    invoice.ReturnDate,
		Passengers:    invoice.Passengers,
		CabinClass:    invoice.CabinClass,
		OutboundLeg:   invoice.OutboundLeg,
		ReturnLeg:     invoice.ReturnLeg,
		Amount:        invoice.Amount,
		Currency:      invoice.Currency,
		PaymentStatus: invoice.PaymentStatus,
		PaymentMethod: invoice.PaymentMethod,
		PaidAt:        invoice.PaidAt,
	}
	// Bank details only matter while there is still something to pay.
	if invoice.PaymentStatus == models.PaymentStatusPending && h.cfg.BankAccountNumber != "" {
		v.BankDetails = &bankDetails{
			BankName:      h.cfg.BankName,
			AccountName:   h.cfg.BankAccountName,
			AccountNumber: h.cfg.BankAccountNumber,
			IBAN:          h.cfg.BankIBAN,
			SwiftCode:     h.cfg.BankSwiftCode,
		}
	}
	return v
}

// resolve loads the invoice for a token, writing the error response itself
// when that fails.
func (h *RestPayHandler) resolve(c *gin.Context) (*models.Invoice, bool) {
	invoice, err := h.invoiceService.FindByPaymentLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "This payment link is not valid"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment details"})
		}
		return nil, false
	}
	return invoice, true
}

// Resolve handles GET /v1/pay/:token
func (h *RestPayHandler) Resolve(c *gin.Context) {
	invoice, ok := h.resolve(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(invoice))
}

// cardChargeRequest carries the token the processor's card widget issued in
// the customer's browser. Raw card details never reach this server. The
// optional idempotency key is generated once per submit by the payment page
// and echoed unchanged on retries, so a timed-out charge is never doubled.
type cardChargeRequest struct {
	PaymentToken   string `json:"payment_token" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

// ChargeCard handles POST /v1/pay/:token/card
//
// A cancelled invoice is still chargeable: the payment page stays up for it,
// and captured funds always win over an earlier manual cancellation.
func (h *RestPayHandler) ChargeCard(c *gin.Context) {
	invoice, ok := h.resolve(c)
	if !ok {
		return
	}
	if invoice.PaymentStatus == models.PaymentStatusPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "This invoice has already been paid"})
		return
	}

	var req cardChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A payment token is required"})
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	result, err := h.gateway.Charge(c.Request.Context(), payments.ChargeRequest{
		PaymentToken:   req.PaymentToken,
		Amount:         invoice.Amount,
		Currency:       invoice.Currency,
		InvoiceNumber:  invoice.InvoiceNumber,
		CustomerEmail:  invoice.CustomerEmail,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment processor is unavailable, please try again"})
		return
	}

	if result.RequiresAuth {
		c.JSON(http.StatusOK, gin.H{
			"requires_auth": true,
			"auth_url":      result.AuthURL,
			"attempt_id":    result.AttemptID,
		})
		return
	}
	if !result.Success {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": failureMessage(result)})
		return
	}

	h.settle(c, invoice)
}

type complete3DSRequest struct {
	AttemptID string `json:"attempt_id" binding:"required"`
	Success   *bool  `json:"success" binding:"required"`
}

// Complete3DS handles POST /v1/pay/:token/3ds
func (h *RestPayHandler) Complete3DS(c *gin.Context) {
	invoice, ok := h.resolve(c)
	if !ok {
		return
	}
	if invoice.PaymentStatus == models.PaymentStatusPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "This invoice has already been paid"})
		return
	}

	var req complete3DSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attempt_id and success are required"})
		return
	}

	// A failed or abandoned challenge never mutates the invoice.
	if !*req.Success {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Card authentication was not completed"})
		return
	}

	// Never trust the browser's word alone: confirm the outcome with the
	// processor before marking anything paid.
	result, err := h.gateway.Complete3DS(c.Request.Context(), req.AttemptID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment processor is unavailable, please try again"})
		return
	}
	if !result.Success {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": failureMessage(result)})
		return
	}

	h.settle(c, invoice)
}

// settle records a captured card payment and queues the receipt email.
func (h *RestPayHandler) settle(c *gin.Context, invoice *models.Invoice) {
	updated, err := h.invoiceService.MarkPaidByLink(c.Request.Context(), invoice.PaymentLink, models.PaymentMethodCard)
	if err != nil {
		// The charge went through; surface loudly so support can reconcile.
		h.logger.Error("charge captured but invoice update failed",
			zap.String("invoice_number", invoice.InvoiceNumber), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment was received but could not be recorded, please contact us"})
		return
	}

	if h.enqueuer != nil {
		task := tasks.NewTask(tasks.TypePaymentReceipt, tasks.InvoiceEmailPayload{InvoiceNumber: updated.InvoiceNumber})
		if _, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(10)); err != nil {
			h.logger.Error("failed to enqueue payment receipt",
				zap.String("invoice_number", updated.InvoiceNumber), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, h.view(updated))
}

// DeclareBankTransfer handles POST /v1/pay/:token/bank-transfer
func (h *RestPayHandler) DeclareBankTransfer(c *gin.Context) {
	invoice, ok := h.resolve(c)
	if !ok {
		return
	}

	updated, err := h.invoiceService.DeclareBankTransfer(c.Request.Context(), invoice.PaymentLink)
	if err != nil {
		if errors.Is(err, services.ErrIllegalTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "This invoice has already been paid"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record bank transfer declaration"})
		}
		return
	}
	c.JSON(http.StatusOK, h.view(updated))
}

func failureMessage(result *payments.ChargeResult) string {
	if result.Message != "" {
		return result.Message
	}
	return "Payment was declined"
}
