package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/models"
	"lastseat/server/internal/utils"
)

func setupTestDBAdmins(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName, "admins")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func TestAdminService_CreateAndAuthenticate(t *testing.T) {
	database := setupTestDBAdmins(t, "testdb_admin_auth")
	svc := NewAdminService(database, &config.Config{})
	ctx := context.Background()

	admin, err := svc.Create(ctx, "Staff@Example.com", "Staff Person", "s3cret-pw", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEqual(t, "s3cret-pw", admin.PasswordHash)

	// Correct credentials, case-insensitive email.
	got, err := svc.Authenticate(ctx, "STAFF@example.COM", "s3cret-pw")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	// Wrong password and unknown email both map to the same error.
	_, err = svc.Authenticate(ctx, "staff@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminService_DuplicateEmail(t *testing.T) {
	database := setupTestDBAdmins(t, "testdb_admin_dup_email")
	svc := NewAdminService(database, &config.Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "dup@example.com", "First", "pw-one", models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "dup@example.com", "Second", "pw-two", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAdminService_CreateValidation(t *testing.T) {
	database := setupTestDBAdmins(t, "testdb_admin_validation")
	svc := NewAdminService(database, &config.Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "No Email", "pw", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "a@example.com", "Bad Role", "pw", models.AdminRole("superuser"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdminService_Bootstrap(t *testing.T) {
	database := setupTestDBAdmins(t, "testdb_admin_bootstrap")
	cfg := &config.Config{
		BootstrapAdminEmail:    "owner@example.com",
		BootstrapAdminPassword: "bootstrap-pw",
	}
	svc := NewAdminService(database, cfg)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx))

	admin, err := svc.Authenticate(ctx, "owner@example.com", "bootstrap-pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMainAdmin, admin.Role)

	// Idempotent: a second run does not create another account.
	require.NoError(t, svc.Bootstrap(ctx))
	count, err := database.Collection("admins").CountDocuments(ctx, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAdminService_BootstrapSkippedWhenPopulated(t *testing.T) {
	database := setupTestDBAdmins(t, "testdb_admin_bootstrap_skip")
	cfg := &config.Config{
		BootstrapAdminEmail:    "owner@example.com",
		BootstrapAdminPassword: "bootstrap-pw",
	}
	svc := NewAdminService(database, cfg)
	ctx := context.Background()

	_, err := svc.Create(ctx, "existing@example.com", "Existing", "pw", models.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, svc.Bootstrap(ctx))
	_, err = svc.FindByEmail(ctx, "owner@example.com")
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
