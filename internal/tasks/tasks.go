package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/email"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/utils"
)

// Background task types.
const (
	TypeEmailDelivery    = "email:deliver"
	TypeAuditRecord      = "audit:record"
	TypePaymentLinkEmail = "invoice:payment_link_email"
	TypePaymentReceipt   = "invoice:payment_receipt"
	TypeInquiryNotify    = "inquiry:notify"
)

// EmailDeliveryPayload is a fully composed email awaiting delivery.
type EmailDeliveryPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// InvoiceEmailPayload references an invoice whose email (payment link or
// receipt) the processor composes at delivery time, so a retried task always
// reflects current invoice state.
type InvoiceEmailPayload struct {
	InvoiceNumber string `json:"invoice_number"`
}

// InquiryNotifyPayload references an inquiry to notify the agency inbox about.
type InquiryNotifyPayload struct {
	InquiryID string `json:"inquiry_id"`
}

// NewClient creates an asynq client on the same Redis the rest of the app uses.
func NewClient(rdb *redis.Client) *asynq.Client {
	opts := rdb.Options()
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NewTask builds a task with a JSON payload. Panics only on unmarshalable
// payload types, which would be a programming error.
func NewTask(taskType string, payload interface{}) *asynq.Task {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("tasks: cannot marshal payload for %s: %v", taskType, err))
	}
	return asynq.NewTask(taskType, data)
}

// TaskProcessor handles the processing of background tasks.
type TaskProcessor struct {
	cfg         *config.Config
	db          *mongo.Database
	emailSender email.Sender
	logger      *zap.Logger
}

// NewTaskProcessor creates a new TaskProcessor.
func NewTaskProcessor(cfg *config.Config, database *mongo.Database, emailSender email.Sender) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		db:          database,
		emailSender: emailSender,
		logger:      logging.Get().Named("tasks"),
	}
}

// SetupServer configures and returns an asynq server with all handlers
// registered.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	opts := rdb.Options()
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB},
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.Get().Error("task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeAuditRecord, processor.HandleAuditRecordTask)
	mux.HandleFunc(TypePaymentLinkEmail, processor.HandlePaymentLinkEmailTask)
	mux.HandleFunc(TypePaymentReceipt, processor.HandlePaymentReceiptTask)
	mux.HandleFunc(TypeInquiryNotify, processor.HandleInquiryNotifyTask)
	return srv, mux
}

// composeMessage builds a complete RFC 5322 text message, headers included, as
// the email.Sender interface expects.
func composeMessage(from string, to []string, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// HandleEmailDeliveryTask delivers a pre-composed email.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid email delivery payload: %w", err)
	}
	msg := composeMessage(p.cfg.SmtpFromAddress, payload.To, payload.Subject, payload.Body)
	return p.emailSender.Send(ctx, payload.To, payload.Subject, msg)
}

// HandleAuditRecordTask lands an audit entry whose synchronous write failed.
// Inserting by the entry's original ID makes the task idempotent: a duplicate
// key means a previous attempt already succeeded.
func (p *TaskProcessor) HandleAuditRecordTask(ctx context.Context, t *asynq.Task) error {
	var entry models.AuditEntry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		return fmt.Errorf("invalid audit record payload: %w", err)
	}

	_, err := p.db.Collection("audit_log").InsertOne(ctx, &entry)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil // already written by an earlier attempt
		}
		return fmt.Errorf("audit retry insert failed: %w", err)
	}
	p.logger.Info("audit entry recovered via queue", zap.String("entity_id", entry.EntityID))
	return nil
}

func (p *TaskProcessor) loadInvoice(ctx context.Context, payload []byte) (*models.Invoice, error) {
	var in InvoiceEmailPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("invalid invoice email payload: %w", err)
	}
	var inv models.Invoice
	filter := bson.M{"invoice_number": in.InvoiceNumber}
	if err := p.db.Collection("invoices").FindOne(ctx, filter).Decode(&inv); err != nil {
		return nil, fmt.Errorf("invoice %s not found for email task: %w", in.InvoiceNumber, err)
	}
	return &inv, nil
}

// HandlePaymentLinkEmailTask emails the customer their invoice and payment URL.
func (p *TaskProcessor) HandlePaymentLinkEmailTask(ctx context.Context, t *asynq.Task) error {
	inv, err := p.loadInvoice(ctx, t.Payload())
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your %s invoice %s", p.cfg.AppName, inv.InvoiceNumber)
	body := fmt.Sprintf(
		"Dear %s,\r\n\r\n"+
			"Your flight booking %s -> %s is ready.\r\n"+
			"Amount due: %.2f %s\r\n\r\n"+
			"Pay securely here: %s/pay/%s\r\n\r\n"+
			"If you prefer a bank transfer, the payment page lists our account details.\r\n\r\n"+
			"Safe travels,\r\n%s",
		inv.CustomerName, inv.Origin, inv.Destination,
		inv.Amount, inv.Currency,
		p.cfg.PublicBaseURL, inv.PaymentLink,
		p.cfg.AppName,
	)
	to := []string{inv.CustomerEmail}
	return p.emailSender.Send(ctx, to, subject, composeMessage(p.cfg.SmtpFromAddress, to, subject, body))
}

// HandlePaymentReceiptTask emails the customer a payment receipt. Skips
// silently if the invoice is no longer paid (an admin reversed it before the
// task ran).
func (p *TaskProcessor) HandlePaymentReceiptTask(ctx context.Context, t *asynq.Task) error {
	inv, err := p.loadInvoice(ctx, t.Payload())
	if err != nil {
		return err
	}
	if inv.PaymentStatus != models.PaymentStatusPaid {
		p.logger.Warn("skipping receipt: invoice no longer paid",
			zap.String("invoice_number", inv.InvoiceNumber))
		return nil
	}

	paidAt := time.Now().UTC()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	subject := fmt.Sprintf("Payment receipt - %s", inv.InvoiceNumber)
	body := fmt.Sprintf(
		"Dear %s,\r\n\r\n"+
			"We received your payment of %.2f %s for invoice %s on %s.\r\n"+
			"Your booking %s -> %s is confirmed.\r\n\r\n"+
			"Thank you for flying with %s.",
		inv.CustomerName, inv.Amount, inv.Currency, inv.InvoiceNumber,
		paidAt.Format("2 Jan 2006"),
		inv.Origin, inv.Destination,
		p.cfg.AppName,
	)
	to := []string{inv.CustomerEmail}
	return p.emailSender.Send(ctx, to, subject, composeMessage(p.cfg.SmtpFromAddress, to, subject, body))
}

// HandleInquiryNotifyTask tells the agency inbox about a new lead-form
// submission.
func (p *TaskProcessor) HandleInquiryNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload InquiryNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid inquiry notify payload: %w", err)
	}
	if p.cfg.AgencyInboxEmail == "" {
		return nil // notifications not configured
	}

	var inq models.Inquiry
	id, err := utils.ParseUID(payload.InquiryID)
	if err != nil {
		return fmt.Errorf("invalid inquiry id %q: %w", payload.InquiryID, err)
	}
	if err := p.db.Collection("inquiries").FindOne(ctx, bson.M{"_id": id}).Decode(&inq); err != nil {
		return fmt.Errorf("inquiry %s not found for notify task: %w", payload.InquiryID, err)
	}

	subject := fmt.Sprintf("New %s inquiry from %s", inq.Kind, inq.Name)
	var detail string
	switch inq.Kind {
	case models.InquiryKindFlight:
		detail = fmt.Sprintf("Route: %s -> %s, %d passenger(s), %s", inq.Origin, inq.Destination, inq.Passengers, inq.CabinClass)
	case models.InquiryKindGiftVoucher:
		detail = fmt.Sprintf("Voucher: %.2f %s for %s", inq.VoucherAmount, inq.VoucherCurrency, inq.RecipientName)
	default:
		detail = inq.Message
	}
	body := fmt.Sprintf("Name: %s\r\nEmail: %s\r\nPhone: %s\r\n\r\n%s\r\n\r\nMessage:\r\n%s",
		inq.Name, inq.Email, inq.Phone, detail, inq.Message)

	to := []string{p.cfg.AgencyInboxEmail}
	return p.emailSender.Send(ctx, to, subject, composeMessage(p.cfg.SmtpFromAddress, to, subject, body))
}
