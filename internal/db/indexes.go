package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the application relies on. Uniqueness of
// payment links and invoice numbers is enforced here, not in application code;
// creation paths retry with regenerated values on duplicate-key errors.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"invoices": {
			{Keys: bson.D{{Key: "payment_link", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "payment_status", Value: 1}, {Key: "paid_at", Value: -1}}},
		},
		"admins": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"inquiries": {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "status", Value: 1}}},
		},
		"audit_log": {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		"airports": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"route_prices": {
			{Keys: bson.D{{Key: "origin", Value: 1}, {Key: "destination", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", coll, err)
		}
	}
	return nil
}
