// Package testing starts throwaway infrastructure for integration tests.
package testing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"

	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
)

// MongoDBContainer wraps a testcontainers MongoDB instance
type MongoDBContainer struct {
	Container *mongodb.MongoDBContainer
	URI       string
}

// NewMongoDBContainer starts a MongoDB testcontainer
func NewMongoDBContainer(ctx context.Context) (*MongoDBContainer, error) {
	container, err := mongodb.Run(ctx, "mongo:6")
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoDBContainer{Container: container, URI: uri}, nil
}

// Close terminates the MongoDB container
func (m *MongoDBContainer) Close(ctx context.Context) error {
	if m.Container != nil {
		return m.Container.Terminate(ctx)
	}
	return nil
}

// Connect opens a client on database through the service's own client setup
func (m *MongoDBContainer) Connect(ctx context.Context, database string) (*pricingmongo.Client, error) {
	cfg := pricingmongo.DefaultConfig()
	cfg.URI = m.URI
	cfg.Database = database
	return pricingmongo.NewClient(ctx, cfg)
}

// StartMongoDB starts a container and returns a database named after the
// test. Everything is torn down when the test finishes.
func StartMongoDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := NewMongoDBContainer(ctx)
	if err != nil {
		t.Fatalf("start mongodb: %v", err)
	}
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	client, err := container.Connect(ctx, databaseName(t.Name()))
	if err != nil {
		t.Fatalf("connect mongodb: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	return client.Database()
}

func databaseName(testName string) string {
	name := strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(testName)
	if len(name) > 48 {
		name = name[:48]
	}
	return "it_" + name
}
