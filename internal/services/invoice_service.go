package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/utils"
)

// Actor identifies the admin performing a privileged operation, for audit and
// provenance fields.
type Actor struct {
	ID    utils.UID
	Email string
}

// CreateInvoiceInput carries the admin-supplied fields for a new invoice.
type CreateInvoiceInput struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    *time.Time
	Passengers    int
	CabinClass    string
	OutboundLeg   *models.FlightLeg
	ReturnLeg     *models.FlightLeg

	Amount   float64
	Currency string
	Notes    string
}

// DashboardStats is the summary the admin dashboard shows. Revenue figures sum
// paid invoice amounts; the today/month windows are computed over paid_at in UTC.
type DashboardStats struct {
	TotalInvoices  int64   `json:"total_invoices"`
	PendingCount   int64   `json:"pending_count"`
	PaidCount      int64   `json:"paid_count"`
	CancelledCount int64   `json:"cancelled_count"`
	TotalRevenue   float64 `json:"total_revenue"`
	TodayRevenue   float64 `json:"today_revenue"`
	MonthRevenue   float64 `json:"month_revenue"`
}

// IInvoiceService defines the interface for invoice lifecycle operations.
type IInvoiceService interface {
	Create(ctx context.Context, actor Actor, in CreateInvoiceInput) (*models.Invoice, error)
	FindByID(ctx context.Context, id utils.UID) (*models.Invoice, error)
	FindByPaymentLink(ctx context.Context, token string) (*models.Invoice, error)
	List(ctx context.Context, status *models.PaymentStatus, limit int64) ([]models.Invoice, error)
	UpdateStatus(ctx context.Context, actor Actor, id utils.UID, newStatus models.PaymentStatus, expectedVersion int64) (*models.Invoice, error)
	UpdateDetails(ctx context.Context, actor Actor, id utils.UID, in CreateInvoiceInput, expectedVersion int64) (*models.Invoice, error)
	MarkPaidByLink(ctx context.Context, token string, method models.PaymentMethod) (*models.Invoice, error)
	DeclareBankTransfer(ctx context.Context, token string) (*models.Invoice, error)
	Delete(ctx context.Context, actor Actor, id utils.UID) error
	DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error)
}

const invoicesCollection = "invoices"

// invoiceService implements IInvoiceService.
type invoiceService struct {
	db       *mongo.Database
	cfg      *config.Config
	auditSvc IAuditService
	logger   *zap.Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(database *mongo.Database, cfg *config.Config, auditSvc IAuditService) IInvoiceService {
	return &invoiceService{
		db:       database,
		cfg:      cfg,
		auditSvc: auditSvc,
		logger:   logging.Get().Named("invoices"),
	}
}

// newInvoiceNumber builds the human-facing number: INV-<last 8 digits of the
// millisecond timestamp>-<3-digit random>. Human-friendly, not a secret; the
// unique index plus creation retry covers the (tiny) collision window.
func newInvoiceNumber(now time.Time) string {
	ts := now.UnixMilli() % 100000000
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		panic("invoice number randomness unavailable: " + err.Error())
	}
	return fmt.Sprintf("INV-%08d-%03d", ts, n.Int64())
}

func validateCreateInput(in CreateInvoiceInput) error {
	switch {
	case in.CustomerName == "":
		return fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	case in.CustomerEmail == "":
		return fmt.Errorf("%w: customer email is required", ErrInvalidInput)
	case in.CustomerPhone == "":
		return fmt.Errorf("%w: customer phone is required", ErrInvalidInput)
	case in.Origin == "":
		return fmt.Errorf("%w: origin is required", ErrInvalidInput)
	case in.Destination == "":
		return fmt.Errorf("%w: destination is required", ErrInvalidInput)
	case in.DepartureDate.IsZero():
		return fmt.Errorf("%w: departure date is required", ErrInvalidInput)
	case in.Passengers < 1:
		return fmt.Errorf("%w: passenger count must be at least 1", ErrInvalidInput)
	case !models.ValidCabinClass(in.CabinClass):
		return fmt.Errorf("%w: unknown cabin class %q", ErrInvalidInput, in.CabinClass)
	case in.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	case !models.ValidCurrency(in.Currency):
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, in.Currency)
	}
	return nil
}

// Create inserts a new pending invoice with a fresh invoice number and payment
// link token, then records a create_invoice audit entry.
func (s *invoiceService) Create(ctx context.Context, actor Actor, in CreateInvoiceInput) (*models.Invoice, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	collection := s.db.Collection(invoicesCollection)
	now := time.Now().UTC()

	var inv *models.Invoice
	// Number, token and ID are all regenerated on each attempt so a unique
	// index collision on any of them is resolved by the retry.
	err := db.Try(func() error {
		inv = &models.Invoice{
			Base:          models.NewBase(),
			InvoiceNumber: newInvoiceNumber(time.Now()),
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: in.CustomerPhone,
			Origin:        in.Origin,
			Destination:   in.Destination,
			DepartureDate: in.DepartureDate,
			ReturnDate:    in.ReturnDate,
			Passengers:    in.Passengers,
			CabinClass:    in.CabinClass,
			OutboundLeg:   in.OutboundLeg,
			ReturnLeg:     in.ReturnLeg,
			Amount:        in.Amount,
			Currency:      in.Currency,
			Notes:         in.Notes,
			PaymentStatus: models.PaymentStatusPending,
			PaymentLink:   utils.NewPaymentToken(),
			Version:       1,
			CreatedByID:   actor.ID,
			CreatedByEmail: actor.Email,
			CreatedAt:     now,
		}
		_, insertErr := collection.InsertOne(ctx, inv)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("error inserting invoice: %w", err)
	}

	s.auditSvc.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditCreateInvoice,
		EntityType: "invoice",
		EntityID:   inv.ID.String(),
		Details: map[string]interface{}{
			"invoice_number": inv.InvoiceNumber,
			"amount":         inv.Amount,
			"currency":       inv.Currency,
		},
	})

	s.logger.Info("invoice created",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("id", inv.ID.String()))
	return inv, nil
}

// FindByID finds an invoice by its internal ID.
func (s *invoiceService) FindByID(ctx context.Context, id utils.UID) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.Collection(invoicesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding invoice %s: %w", id.String(), err)
	}
	return &inv, nil
}

// FindByPaymentLink resolves the opaque public token to its invoice. The token
// is the sole credential for the customer payment page; anything that does not
// even look like a token is rejected without touching the database.
func (s *invoiceService) FindByPaymentLink(ctx context.Context, token string) (*models.Invoice, error) {
	if !utils.IsPaymentToken(token) {
		return nil, mongo.ErrNoDocuments
	}
	var inv models.Invoice
	err := s.db.Collection(invoicesCollection).FindOne(ctx, bson.M{"payment_link": token}).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error resolving payment link: %w", err)
	}
	return &inv, nil
}

// List returns invoices newest first, optionally filtered by status.
func (s *invoiceService) List(ctx context.Context, status *models.PaymentStatus, limit int64) ([]models.Invoice, error) {
	filter := bson.M{}
	if status != nil {
		filter["payment_status"] = *status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.db.Collection(invoicesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("error decoding invoices: %w", err)
	}
	return invoices, nil
}

// UpdateStatus performs an admin status change. The lifecycle is deliberately
// permissive - paid and cancelled invoices can be moved back, supporting manual
// correction - but every change is version-checked and audited. paid_at is set
// on the first transition into paid and never overwritten.
func (s *invoiceService) UpdateStatus(ctx context.Context, actor Actor, id utils.UID, newStatus models.PaymentStatus, expectedVersion int64) (*models.Invoice, error) {
	if !models.ValidPaymentStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}

	inv, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.PaymentStatus == newStatus {
		return nil, ErrIllegalTransition
	}

	now := time.Now().UTC()
	set := bson.M{"payment_status": newStatus}
	if newStatus == models.PaymentStatusPaid && inv.PaidAt == nil {
		set["paid_at"] = now
	}

	// The version filter makes the read-then-write above safe: if anyone else
	// wrote in between, this matches nothing.
	res, err := s.db.Collection(invoicesCollection).UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return nil, fmt.Errorf("error updating invoice %s status: %w", id.String(), err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrVersionConflict
	}

	s.auditSvc.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditUpdateInvoiceStatus,
		EntityType: "invoice",
		EntityID:   id.String(),
		Details: map[string]interface{}{
			"invoice_number": inv.InvoiceNumber,
			"old_status":     string(inv.PaymentStatus),
			"new_status":     string(newStatus),
		},
	})

	return s.FindByID(ctx, id)
}

// UpdateDetails replaces the editable content of an invoice - customer,
// itinerary and commercial fields. Number, token, payment status and
// provenance are immutable here; like UpdateStatus, the write is
// version-checked and audited.
func (s *invoiceService) UpdateDetails(ctx context.Context, actor Actor, id utils.UID, in CreateInvoiceInput, expectedVersion int64) (*models.Invoice, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	inv, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	for field, differs := range map[string]bool{
		"customer_name":  in.CustomerName != inv.CustomerName,
		"customer_email": in.CustomerEmail != inv.CustomerEmail,
		"customer_phone": in.CustomerPhone != inv.CustomerPhone,
		"origin":         in.Origin != inv.Origin,
		"destination":    in.Destination != inv.Destination,
		"departure_date": !in.DepartureDate.Equal(inv.DepartureDate),
		"passengers":     in.Passengers != inv.Passengers,
		"cabin_class":    in.CabinClass != inv.CabinClass,
		"amount":         in.Amount != inv.Amount,
		"currency":       in.Currency != inv.Currency,
		"notes":          in.Notes != inv.Notes,
	} {
		if differs {
			changed = append(changed, field)
		}
	}

	res, err := s.db.Collection(invoicesCollection).UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{"$set": bson.M{
			"customer_name":  in.CustomerName,
			"customer_email": in.CustomerEmail,
			"customer_phone": in.CustomerPhone,
			"origin":         in.Origin,
			"destination":    in.Destination,
			"departure_date": in.DepartureDate,
			"return_date":    in.ReturnDate,
			"passengers":     in.Passengers,
			"cabin_class":    in.CabinClass,
			"outbound_leg":   in.OutboundLeg,
			"return_leg":     in.ReturnLeg,
			"amount":         in.Amount,
			"currency":       in.Currency,
			"notes":          in.Notes,
		}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return nil, fmt.Errorf("error updating invoice %s: %w", id.String(), err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrVersionConflict
	}

	s.auditSvc.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditUpdateInvoice,
		EntityType: "invoice",
		EntityID:   id.String(),
		Details: map[string]interface{}{
			"invoice_number": inv.InvoiceNumber,
			"changed_fields": changed,
		},
	})

	return s.FindByID(ctx, id)
}

// MarkPaidByLink transitions an invoice to paid after a successful customer
// payment. Unlike the admin path this is not version-checked: the charge has
// already been captured, so the paid status must stick regardless of
// concurrent admin edits.
func (s *invoiceService) MarkPaidByLink(ctx context.Context, token string, method models.PaymentMethod) (*models.Invoice, error) {
	inv, err := s.FindByPaymentLink(ctx, token)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"payment_status": models.PaymentStatusPaid,
		"payment_method": method,
	}
	if inv.PaidAt == nil {
		set["paid_at"] = time.Now().UTC()
	}

	_, err = s.db.Collection(invoicesCollection).UpdateOne(ctx,
		bson.M{"_id": inv.ID},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return nil, fmt.Errorf("error marking invoice %s paid: %w", inv.ID.String(), err)
	}

	s.logger.Info("invoice paid",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("method", string(method)))
	return s.FindByPaymentLink(ctx, token)
}

// DeclareBankTransfer records the customer's claim to have sent a bank
// transfer. The status stays (or returns to) pending - staff reconcile the
// transfer manually - and only the payment method annotation changes.
func (s *invoiceService) DeclareBankTransfer(ctx context.Context, token string) (*models.Invoice, error) {
	inv, err := s.FindByPaymentLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrIllegalTransition
	}

	_, err = s.db.Collection(invoicesCollection).UpdateOne(ctx,
		bson.M{"_id": inv.ID},
		bson.M{
			"$set": bson.M{
				"payment_status": models.PaymentStatusPending,
				"payment_method": models.PaymentMethodBankTransfer,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error recording bank transfer declaration for %s: %w", inv.ID.String(), err)
	}
	return s.FindByPaymentLink(ctx, token)
}

// Delete hard-deletes an invoice. Irreversible; only the deletion event is
// preserved (in the audit log), not the row itself.
func (s *invoiceService) Delete(ctx context.Context, actor Actor, id utils.UID) error {
	inv, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	res, err := s.db.Collection(invoicesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting invoice %s: %w", id.String(), err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	s.auditSvc.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditDeleteInvoice,
		EntityType: "invoice",
		EntityID:   id.String(),
		Details: map[string]interface{}{
			"invoice_number": inv.InvoiceNumber,
			"amount":         inv.Amount,
			"currency":       inv.Currency,
			"status":         string(inv.PaymentStatus),
		},
	})

	s.logger.Info("invoice deleted", zap.String("invoice_number", inv.InvoiceNumber))
	return nil
}

// DashboardStats computes the dashboard summary server-side with a single
// $facet aggregation, so the API never ships the whole invoice collection to
// the client. Windows are UTC calendar day and month containing now.
func (s *invoiceService) DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	revenueSince := func(since time.Time) bson.A {
		return bson.A{
			bson.M{"$match": bson.M{
				"payment_status": models.PaymentStatusPaid,
				"paid_at":        bson.M{"$gte": since},
			}},
			bson.M{"$group": bson.M{"_id": nil, "amount": bson.M{"$sum": "$amount"}}},
		}
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$facet", Value: bson.M{
			"by_status": bson.A{
				bson.M{"$group": bson.M{
					"_id":    "$payment_status",
					"count":  bson.M{"$sum": 1},
					"amount": bson.M{"$sum": "$amount"},
				}},
			},
			"today": revenueSince(dayStart),
			"month": revenueSince(monthStart),
		}}},
	}

	cursor, err := s.db.Collection(invoicesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating dashboard stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		ByStatus []struct {
			Status models.PaymentStatus `bson:"_id"`
			Count  int64                `bson:"count"`
			Amount float64              `bson:"amount"`
		} `bson:"by_status"`
		Today []struct {
			Amount float64 `bson:"amount"`
		} `bson:"today"`
		Month []struct {
			Amount float64 `bson:"amount"`
		} `bson:"month"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("error decoding dashboard stats: %w", err)
	}

	stats := &DashboardStats{}
	if len(results) == 0 {
		return stats, nil
	}
	for _, g := range results[0].ByStatus {
		stats.TotalInvoices += g.Count
		switch g.Status {
		case models.PaymentStatusPending:
			stats.PendingCount = g.Count
		case models.PaymentStatusPaid:
			stats.PaidCount = g.Count
			stats.TotalRevenue = g.Amount
		case models.PaymentStatusCancelled:
			stats.CancelledCount = g.Count
		}
	}
	if len(results[0].Today) > 0 {
		stats.TodayRevenue = results[0].Today[0].Amount
	}
	if len(results[0].Month) > 0 {
		stats.MonthRevenue = results[0].Month[0].Amount
	}
	return stats, nil
}
