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

	"lastseat/server/internal/db"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/tasks"
	"lastseat/server/internal/utils"
)

// CreateInquiryInput carries a public lead-form submission. Kind decides which
// of the optional field groups is honored.
type CreateInquiryInput struct {
	Kind    models.InquiryKind
	Name    string
	Email   string
	Phone   string
	Message string

	Origin        string
	Destination   string
	DepartureDate *time.Time
	ReturnDate    *time.Time
	Passengers    int
	CabinClass    string

	VoucherAmount   float64
	VoucherCurrency string
	RecipientName   string
}

// InquiryFilter narrows List results. Nil fields match everything.
type InquiryFilter struct {
	Kind   *models.InquiryKind
	Status *models.InquiryStatus
}

// IInquiryService defines the interface for inquiry operations.
type IInquiryService interface {
	Create(ctx context.Context, in CreateInquiryInput) (*models.Inquiry, error)
	FindByID(ctx context.Context, id utils.UID) (*models.Inquiry, error)
	List(ctx context.Context, filter InquiryFilter, limit int64) ([]models.Inquiry, error)
	UpdateStatus(ctx context.Context, actor Actor, id utils.UID, status models.InquiryStatus, notes *string) (*models.Inquiry, error)
	Delete(ctx context.Context, actor Actor, id utils.UID) error
}

const (
	inquiriesCollection    = "inquiries"
	defaultInquiryListSize = 200
)

// inquiryService implements IInquiryService.
type inquiryService struct {
	db       *mongo.Database
	audit    IAuditService
	enqueuer TaskEnqueuer
	logger   *zap.Logger
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(database *mongo.Database, audit IAuditService, enqueuer TaskEnqueuer) IInquiryService {
	return &inquiryService{
		db:       database,
		audit:    audit,
		enqueuer: enqueuer,
		logger:   logging.Get().Named("inquiries"),
	}
}

func validateInquiryInput(in CreateInquiryInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	switch in.Kind {
	case models.InquiryKindContact:
		if strings.TrimSpace(in.Message) == "" {
			return fmt.Errorf("%w: message is required for contact inquiries", ErrInvalidInput)
		}
	case models.InquiryKindFlight:
		if strings.TrimSpace(in.Origin) == "" || strings.TrimSpace(in.Destination) == "" {
			return fmt.Errorf("%w: origin and destination are required for flight inquiries", ErrInvalidInput)
		}
		if in.Passengers < 1 {
			return fmt.Errorf("%w: passengers must be at least 1", ErrInvalidInput)
		}
		if in.CabinClass != "" && !models.ValidCabinClass(in.CabinClass) {
			return fmt.Errorf("%w: unknown cabin class %q", ErrInvalidInput, in.CabinClass)
		}
	case models.InquiryKindGiftVoucher:
		if in.VoucherAmount <= 0 {
			return fmt.Errorf("%w: voucher amount must be positive", ErrInvalidInput)
		}
		if in.VoucherCurrency != "" && !models.ValidCurrency(in.VoucherCurrency) {
			return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, in.VoucherCurrency)
		}
	default:
		return fmt.Errorf("%w: unknown inquiry kind %q", ErrInvalidInput, in.Kind)
	}
	return nil
}

// Create stores a new inquiry with status "new" and enqueues the agency
// notification email.
func (s *inquiryService) Create(ctx context.Context, in CreateInquiryInput) (*models.Inquiry, error) {
	if err := validateInquiryInput(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inquiry := &models.Inquiry{
		Kind:            in.Kind,
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:           strings.TrimSpace(in.Phone),
		Message:         strings.TrimSpace(in.Message),
		Origin:          strings.TrimSpace(in.Origin),
		Destination:     strings.TrimSpace(in.Destination),
		DepartureDate:   in.DepartureDate,
		ReturnDate:      in.ReturnDate,
		Passengers:      in.Passengers,
		CabinClass:      in.CabinClass,
		VoucherAmount:   in.VoucherAmount,
		VoucherCurrency: in.VoucherCurrency,
		RecipientName:   strings.TrimSpace(in.RecipientName),
		Status:          models.InquiryStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := db.InsertOne(ctx, s.db.Collection(inquiriesCollection), inquiry); err != nil {
		return nil, fmt.Errorf("error inserting inquiry: %w", err)
	}

	if s.enqueuer != nil {
		task := tasks.NewTask(tasks.TypeInquiryNotify, tasks.InquiryNotifyPayload{InquiryID: inquiry.ID.String()})
		if _, err := s.enqueuer.Enqueue(task); err != nil {
			s.logger.Error("failed to enqueue inquiry notification", zap.String("inquiry_id", inquiry.ID.String()), zap.Error(err))
		}
	}

	return inquiry, nil
}

// FindByID finds an inquiry by ID.
func (s *inquiryService) FindByID(ctx context.Context, id utils.UID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := s.db.Collection(inquiriesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding inquiry %s: %w", id.String(), err)
	}
	return &inquiry, nil
}

// List returns inquiries newest first, optionally filtered by kind and status.
func (s *inquiryService) List(ctx context.Context, filter InquiryFilter, limit int64) ([]models.Inquiry, error) {
	if limit <= 0 || limit > defaultInquiryListSize {
		limit = defaultInquiryListSize
	}
	query := bson.M{}
	if filter.Kind != nil {
		query["kind"] = *filter.Kind
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := s.db.Collection(inquiriesCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	inquiries := []models.Inquiry{}
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("error decoding inquiries: %w", err)
	}
	return inquiries, nil
}

// UpdateStatus moves an inquiry to a new follow-up status and optionally
// replaces the staff notes. Any status-to-status move is allowed.
func (s *inquiryService) UpdateStatus(ctx context.Context, actor Actor, id utils.UID, status models.InquiryStatus, notes *string) (*models.Inquiry, error) {
	if !models.ValidInquiryStatus(status) {
		return nil, fmt.Errorf("%w: unknown inquiry status %q", ErrInvalidInput, status)
	}

	inquiry, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := inquiry.Status

	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if notes != nil {
		set["admin_notes"] = strings.TrimSpace(*notes)
	}
	_, err = s.db.Collection(inquiriesCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("error updating inquiry %s: %w", id.String(), err)
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditUpdateInquiryStatus,
		EntityType: "inquiry",
		EntityID:   id.String(),
		Details: map[string]interface{}{
			"old_status": oldStatus,
			"new_status": status,
		},
	})

	return s.FindByID(ctx, id)
}

// Delete removes an inquiry.
func (s *inquiryService) Delete(ctx context.Context, actor Actor, id utils.UID) error {
	inquiry, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(inquiriesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting inquiry %s: %w", id.String(), err)
	}
	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     models.AuditDeleteInquiry,
		EntityType: "inquiry",
		EntityID:   id.String(),
		Details: map[string]interface{}{
			"kind":  inquiry.Kind,
			"email": inquiry.Email,
		},
	})
	return nil
}
