package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freight-platform/pricing-service/internal/domain"
	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
)

// TariffRepository implements domain.TariffRepository
type TariffRepository struct {
	collection pricingmongo.Collection
}

// NewTariffRepository creates a new TariffRepository
func NewTariffRepository(db pricingmongo.CollectionProvider) *TariffRepository {
	return &TariffRepository{collection: db.Collection(CollectionTariffs)}
}

// FindActive returns the active rows of a category and operation that are
// effective at query.AsOf, newest first
func (r *TariffRepository) FindActive(ctx context.Context, query domain.TariffQuery) ([]domain.Tariff, error) {
	filter := bson.M{
		"category":      query.Category,
		"operation":     query.Operation,
		"active":        true,
		"effectiveDate": bson.M{"$lte": query.AsOf},
	}
	opts := options.Find().SetSort(pricingmongo.SortMultiple(
		pricingmongo.SortField{Field: "effectiveDate", Descending: true},
		pricingmongo.SortField{Field: "tariffId"},
	))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tariffs %s/%s: %w", query.Category, query.Operation, err)
	}
	docs, err := pricingmongo.DecodeAll[tariffDocument](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("decode tariffs: %w", err)
	}

	tariffs := make([]domain.Tariff, 0, len(docs))
	for _, d := range docs {
		t, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, nil
}

// UpsertAll replaces tariff rows by id
func (r *TariffRepository) UpsertAll(ctx context.Context, tariffs []domain.Tariff) error {
	models := make([]mongo.WriteModel, len(tariffs))
	for i := range tariffs {
		doc, err := newTariffDocument(tariffs[i])
		if err != nil {
			return err
		}
		models[i] = replaceModel(bson.M{"tariffId": doc.ID}, doc)
	}
	return bulkUpsert(ctx, r.collection, models)
}
