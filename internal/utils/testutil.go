package utils

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetTestMongoURI returns the MongoDB URI used by integration-style tests.
// Defaults to a local instance so `go test ./...` works on a dev machine.
func GetTestMongoURI() string {
	if uri := os.Getenv("MONGO_URI_TEST"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// SetupTestDB connects to the test MongoDB instance and returns the named
// database with the given collections dropped for a clean state.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(GetTestMongoURI()))
	require.NoError(t, err, "Failed to connect to MongoDB")
	db := client.Database(dbName)
	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}
	return db
}
