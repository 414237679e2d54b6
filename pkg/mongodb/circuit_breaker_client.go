package mongodb

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/metrics"
	"github.com/freight-platform/pricing-service/pkg/resilience"
)

// CircuitBreakerClient wraps InstrumentedClient with circuit breaker protection
type CircuitBreakerClient struct {
	client         *InstrumentedClient
	circuitBreaker *resilience.CircuitBreaker
}

// NewCircuitBreakerClient creates a breaker-protected client. State changes
// are exported through m when it is not nil.
func NewCircuitBreakerClient(client *InstrumentedClient, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerClient {
	config := resilience.DefaultCircuitBreakerConfig("mongodb")
	config.MaxRequests = 5
	config.Timeout = 30 * time.Second
	config.OnStateChange = func(name string, _, to gobreaker.State) {
		if m == nil {
			return
		}
		m.SetCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}

	var cb *resilience.CircuitBreaker
	if logger != nil {
		cb = resilience.NewCircuitBreaker(config, logger.Logger)
	} else {
		cb = resilience.NewCircuitBreaker(config, nil)
	}

	return &CircuitBreakerClient{client: client, circuitBreaker: cb}
}

// Collection returns a circuit breaker protected collection
func (c *CircuitBreakerClient) Collection(name string) Collection {
	return NewCircuitBreakerCollection(c.client.Collection(name), c.circuitBreaker)
}

// Database returns the underlying database handle
func (c *CircuitBreakerClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *CircuitBreakerClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings through the breaker
func (c *CircuitBreakerClient) HealthCheck(ctx context.Context) error {
	_, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return nil, c.client.HealthCheck(ctx)
	})
	return err
}

// CircuitBreakerCollection guards a Collection with a circuit breaker
type CircuitBreakerCollection struct {
	collection     Collection
	circuitBreaker *resilience.CircuitBreaker
}

// NewCircuitBreakerCollection wraps coll with cb
func NewCircuitBreakerCollection(coll Collection, cb *resilience.CircuitBreaker) *CircuitBreakerCollection {
	return &CircuitBreakerCollection{collection: coll, circuitBreaker: cb}
}

// Name returns the collection name
func (c *CircuitBreakerCollection) Name() string {
	return c.collection.Name()
}

// Find finds multiple documents with circuit breaker protection
func (c *CircuitBreakerCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.Find(ctx, filter, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.Cursor), nil
}

// FindOne finds a single document with circuit breaker protection. A
// rejected call yields a SingleResult carrying the breaker error.
func (c *CircuitBreakerCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		res := c.collection.FindOne(ctx, filter, opts...)
		if res.Err() != nil && res.Err() != mongo.ErrNoDocuments {
			return res, res.Err()
		}
		return res, nil
	})
	if res, ok := result.(*mongo.SingleResult); ok && res != nil {
		return res
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
}

// BulkWrite performs bulk write operations with circuit breaker protection
func (c *CircuitBreakerCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.BulkWrite(ctx, models, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.BulkWriteResult), nil
}

// Indexes returns the index view of the wrapped collection
func (c *CircuitBreakerCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}

// NewProductionClient connects, instruments and guards a MongoDB client
func NewProductionClient(ctx context.Context, config *Config, m *metrics.Metrics, logger *logging.Logger) (*CircuitBreakerClient, error) {
	baseClient, err := NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewCircuitBreakerClient(NewInstrumentedClient(baseClient, m, logger), m, logger), nil
}
