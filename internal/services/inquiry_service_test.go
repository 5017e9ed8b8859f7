package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"lastseat/server/internal/db"
	"lastseat/server/internal/models"
	"lastseat/server/internal/utils"
)

func setupTestDBInquiries(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName, "inquiries", "audit_log")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func newTestInquiryService(database *mongo.Database) IInquiryService {
	audit := NewAuditService(database, nil)
	return NewInquiryService(database, audit, nil)
}

func TestInquiryService_CreatePerKind(t *testing.T) {
	database := setupTestDBInquiries(t, "testdb_inquiry_create")
	svc := newTestInquiryService(database)
	ctx := context.Background()

	contact, err := svc.Create(ctx, CreateInquiryInput{
		Kind:    models.InquiryKindContact,
		Name:    "Sam Caller",
		Email:   "Sam@Example.com",
		Message: "Do you arrange group bookings?",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusNew, contact.Status)
	assert.Equal(t, "sam@example.com", contact.Email)

	flight, err := svc.Create(ctx, CreateInquiryInput{
		Kind:        models.InquiryKindFlight,
		Name:        "Flyer",
		Email:       "flyer@example.com",
		Origin:      "CAI",
		Destination: "JFK",
		Passengers:  3,
		CabinClass:  models.CabinEconomy,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryKindFlight, flight.Kind)

	voucher, err := svc.Create(ctx, CreateInquiryInput{
		Kind:            models.InquiryKindGiftVoucher,
		Name:            "Giver",
		Email:           "giver@example.com",
		VoucherAmount:   500,
		VoucherCurrency: "EUR",
		RecipientName:   "Lucky Friend",
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, voucher.VoucherAmount)
}

func TestInquiryService_CreateValidation(t *testing.T) {
	database := setupTestDBInquiries(t, "testdb_inquiry_validation")
	svc := newTestInquiryService(database)
	ctx := context.Background()

	cases := []CreateInquiryInput{
		{Kind: models.InquiryKindContact, Name: "X", Email: "x@example.com"},                                     // no message
		{Kind: models.InquiryKindFlight, Name: "X", Email: "x@example.com", Origin: "CAI", Passengers: 1},        // no destination
		{Kind: models.InquiryKindFlight, Name: "X", Email: "x@example.com", Origin: "CAI", Destination: "JFK"},   // no passengers
		{Kind: models.InquiryKindGiftVoucher, Name: "X", Email: "x@example.com"},                                 // no amount
		{Kind: models.InquiryKindGiftVoucher, Name: "X", Email: "x@example.com", VoucherAmount: 10, VoucherCurrency: "XXX"},
		{Kind: models.InquiryKind("unknown"), Name: "X", Email: "x@example.com"},
		{Kind: models.InquiryKindContact, Name: "", Email: "x@example.com", Message: "hi"},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestInquiryService_ListFilterAndStatus(t *testing.T) {
	database := setupTestDBInquiries(t, "testdb_inquiry_list")
	svc := newTestInquiryService(database)
	ctx := context.Background()
	actor := testActor()

	contact, err := svc.Create(ctx, CreateInquiryInput{
		Kind: models.InquiryKindContact, Name: "A", Email: "a@example.com", Message: "hello",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInquiryInput{
		Kind: models.InquiryKindFlight, Name: "B", Email: "b@example.com",
		Origin: "CAI", Destination: "LHR", Passengers: 1,
	})
	require.NoError(t, err)

	all, err := svc.List(ctx, InquiryFilter{}, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	kind := models.InquiryKindContact
	contacts, err := svc.List(ctx, InquiryFilter{Kind: &kind}, 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, contact.ID, contacts[0].ID)

	notes := "called back, waiting on dates"
	updated, err := svc.UpdateStatus(ctx, actor, contact.ID, models.InquiryStatusContacted, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusContacted, updated.Status)
	assert.Equal(t, notes, updated.AdminNotes)

	status := models.InquiryStatusContacted
	contacted, err := svc.List(ctx, InquiryFilter{Status: &status}, 0)
	require.NoError(t, err)
	assert.Len(t, contacted, 1)

	// Status change was audited with before/after.
	count, err := database.Collection("audit_log").CountDocuments(ctx, map[string]interface{}{
		"action_type": string(models.AuditUpdateInquiryStatus),
		"entity_id":   contact.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = svc.UpdateStatus(ctx, actor, contact.ID, models.InquiryStatus("bogus"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInquiryService_Delete(t *testing.T) {
	database := setupTestDBInquiries(t, "testdb_inquiry_delete")
	svc := newTestInquiryService(database)
	ctx := context.Background()
	actor := testActor()

	inquiry, err := svc.Create(ctx, CreateInquiryInput{
		Kind: models.InquiryKindContact, Name: "A", Email: "a@example.com", Message: "hello",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, inquiry.ID))
	_, err = svc.FindByID(ctx, inquiry.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)
}
