package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/metrics"
)

// InstrumentedClient wraps a Client with metrics and tracing
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates a new instrumented MongoDB client
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) Collection {
	return NewInstrumentedCollection(c.client.Collection(name), c.client.config.Database, c.metrics, c.logger)
}

// Database returns the underlying database handle
func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings with a span
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "mongodb.ping",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
	defer span.End()

	err := c.client.HealthCheck(ctx)
	endSpan(span, err)
	return err
}

// InstrumentedCollection wraps a Collection with metrics, logging and tracing
type InstrumentedCollection struct {
	collection Collection
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewInstrumentedCollection wraps coll. metrics and logger may be nil.
func NewInstrumentedCollection(coll Collection, database string, m *metrics.Metrics, logger *logging.Logger) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: coll,
		database:   database,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("mongodb"),
	}
}

func (c *InstrumentedCollection) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", c.collection.Name()),
		),
	)
}

func (c *InstrumentedCollection) record(ctx context.Context, operation string, start time.Time, err error, rowsAffected int64) {
	duration := time.Since(start)
	success := err == nil
	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.collection.Name(), operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.collection.Name(), operation, duration, success, rowsAffected)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.collection.Name()
}

// Find finds multiple documents with instrumentation
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "find")
	defer span.End()

	cursor, err := c.collection.Find(ctx, filter, opts...)
	// Row count is unknown until the cursor is drained.
	c.record(ctx, "find", start, err, 0)
	endSpan(span, err)
	return cursor, err
}

// FindOne finds a single document with instrumentation. ErrNoDocuments counts as success.
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "findOne")
	defer span.End()

	result := c.collection.FindOne(ctx, filter, opts...)
	err := result.Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.record(ctx, "findOne", start, nil, 0)
		endSpan(span, nil)
		return result
	}

	c.record(ctx, "findOne", start, err, 1)
	endSpan(span, err)
	return result
}

// BulkWrite performs bulk write operations with instrumentation
func (c *InstrumentedCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "bulkWrite")
	defer span.End()

	span.SetAttributes(attribute.Int("db.bulk_operations", len(models)))

	result, err := c.collection.BulkWrite(ctx, models, opts...)
	var rowsAffected int64
	if err == nil && result != nil {
		rowsAffected = result.InsertedCount + result.ModifiedCount + result.UpsertedCount
		span.SetAttributes(
			attribute.Int64("db.rows_affected", rowsAffected),
			attribute.Int64("db.upserted_count", result.UpsertedCount),
			attribute.Int64("db.modified_count", result.ModifiedCount),
		)
	}

	c.record(ctx, "bulkWrite", start, err, rowsAffected)
	endSpan(span, err)
	return result, err
}

// Indexes returns the index view of the wrapped collection
func (c *InstrumentedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}
