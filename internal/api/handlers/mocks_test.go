package handlers_test

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"lastseat/server/internal/models"
	"lastseat/server/internal/payments"
	"lastseat/server/internal/services"
	"lastseat/server/internal/utils"
)

// --- Mocks ---

// MockInvoiceService
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Create(ctx context.Context, actor services.Actor, in services.CreateInvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) FindByID(ctx context.Context, id utils.UID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) FindByPaymentLink(ctx context.Context, token string) (*models.Invoice, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) List(ctx context.Context, status *models.PaymentStatus, limit int64) ([]models.Invoice, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) UpdateStatus(ctx context.Context, actor services.Actor, id utils.UID, newStatus models.PaymentStatus, expectedVersion int64) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id, newStatus, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) UpdateDetails(ctx context.Context, actor services.Actor, id utils.UID, in services.CreateInvoiceInput, expectedVersion int64) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id, in, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) MarkPaidByLink(ctx context.Context, token string, method models.PaymentMethod) (*models.Invoice, error) {
	args := m.Called(ctx, token, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) DeclareBankTransfer(ctx context.Context, token string) (*models.Invoice, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *MockInvoiceService) Delete(ctx context.Context, actor services.Actor, id utils.UID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}
func (m *MockInvoiceService) DashboardStats(ctx context.Context, now time.Time) (*services.DashboardStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardStats), args.Error(1)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.ChargeResult), args.Error(1)
}
func (m *MockGateway) Complete3DS(ctx context.Context, attemptID string) (*payments.ChargeResult, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.ChargeResult), args.Error(1)
}

// MockEnqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockAdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}
func (m *MockAdminService) FindByID(ctx context.Context, id utils.UID) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}
func (m *MockAdminService) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}
func (m *MockAdminService) Create(ctx context.Context, email, name, password string, role models.AdminRole) (*models.Admin, error) {
	args := m.Called(ctx, email, name, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}
func (m *MockAdminService) Bootstrap(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockAuditService
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, entry *models.AuditEntry) {
	m.Called(ctx, entry)
}
func (m *MockAuditService) List(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}
