package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"lastseat/server/internal/auth"
	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/models"
	"lastseat/server/internal/utils"
)

// ErrEmailExists is returned when an admin account already uses the email.
var ErrEmailExists = errors.New("email already in use by another account")

// IAdminService defines the interface for back-office account operations.
type IAdminService interface {
	Authenticate(ctx context.Context, email, password string) (*models.Admin, error)
	FindByID(ctx context.Context, id utils.UID) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	Create(ctx context.Context, email, name, password string, role models.AdminRole) (*models.Admin, error)
	Bootstrap(ctx context.Context) error
}

const adminsCollection = "admins"

// adminService implements IAdminService.
type adminService struct {
	db     *mongo.Database
	cfg    *config.Config
	logger *zap.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(database *mongo.Database, cfg *config.Config) IAdminService {
	return &adminService{
		db:     database,
		cfg:    cfg,
		logger: logging.Get().Named("admins"),
	}
}

// Authenticate verifies an email/password pair against a non-deleted account.
func (s *adminService) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	admin, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// FindByID finds a non-deleted admin by ID.
func (s *adminService) FindByID(ctx context.Context, id utils.UID) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.Collection(adminsCollection).FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding admin %s: %w", id.String(), err)
	}
	return &admin, nil
}

// FindByEmail finds a non-deleted admin by email (case-insensitive).
func (s *adminService) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email)), "deleted": false}
	err := s.db.Collection(adminsCollection).FindOne(ctx, filter).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding admin by email %s: %w", email, err)
	}
	return &admin, nil
}

// Create inserts a new admin account with a hashed password.
func (s *adminService) Create(ctx context.Context, email, name, password string, role models.AdminRole) (*models.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if role != models.RoleAdmin && role != models.RoleMainAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = db.InsertOne(ctx, s.db.Collection(adminsCollection), admin)
	if err != nil {
		// The unique email index is the arbiter here; duplicate _id is handled
		// inside InsertOne by regeneration, so a surviving dup-key means email.
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("error inserting admin %s: %w", email, err)
	}

	s.logger.Info("admin account created", zap.String("email", email), zap.String("role", string(role)))
	return admin, nil
}

// Bootstrap seeds a main_admin from ADMIN_EMAIL/ADMIN_PASSWORD when the
// collection is empty, so a fresh deployment can be logged into.
func (s *adminService) Bootstrap(ctx context.Context) error {
	if s.cfg.BootstrapAdminEmail == "" || s.cfg.BootstrapAdminPassword == "" {
		return nil
	}
	count, err := s.db.Collection(adminsCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("error counting admins for bootstrap: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err = s.Create(ctx, s.cfg.BootstrapAdminEmail, "Administrator", s.cfg.BootstrapAdminPassword, models.RoleMainAdmin)
	if errors.Is(err, ErrEmailExists) {
		return nil // raced with another instance
	}
	return err
}
