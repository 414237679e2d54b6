package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/freight-platform/pricing-service/internal/domain"
	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
)

// CaseRepository implements domain.CaseRepository. Ownership is checked by
// the caller so that a foreign case reads as forbidden, not missing.
type CaseRepository struct {
	collection pricingmongo.Collection
}

// NewCaseRepository creates a new CaseRepository
func NewCaseRepository(db pricingmongo.CollectionProvider) *CaseRepository {
	return &CaseRepository{collection: db.Collection(CollectionCases)}
}

// FindByID retrieves a case with its facts
func (r *CaseRepository) FindByID(ctx context.Context, caseID string) (*domain.Case, error) {
	var c domain.Case
	err := r.collection.FindOne(ctx, bson.M{"caseId": caseID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCaseNotFound
		}
		return nil, fmt.Errorf("find case %s: %w", caseID, err)
	}
	return &c, nil
}

// UpsertAll replaces cases by id
func (r *CaseRepository) UpsertAll(ctx context.Context, cases []domain.Case) error {
	models := make([]mongo.WriteModel, len(cases))
	for i := range cases {
		models[i] = replaceModel(bson.M{"caseId": cases[i].ID}, cases[i])
	}
	return bulkUpsert(ctx, r.collection, models)
}
