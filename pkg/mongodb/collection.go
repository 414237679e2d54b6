package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the subset of collection operations the repositories use.
// *mongo.Collection, *InstrumentedCollection and *CircuitBreakerCollection
// all satisfy it, so repositories can be tested against mtest collections.
type Collection interface {
	Name() string
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	Indexes() mongo.IndexView
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) Collection
}

// DatabaseProvider adapts a plain *mongo.Database to CollectionProvider.
type DatabaseProvider struct {
	DB *mongo.Database
}

// Collection implements CollectionProvider
func (p DatabaseProvider) Collection(name string) Collection {
	return p.DB.Collection(name)
}

var (
	_ Collection = (*mongo.Collection)(nil)
	_ Collection = (*InstrumentedCollection)(nil)
	_ Collection = (*CircuitBreakerCollection)(nil)
)
