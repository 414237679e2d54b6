package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freight-platform/pricing-service/internal/domain"
	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
	"github.com/freight-platform/pricing-service/pkg/tenant"
)

// AuditRepository implements domain.AuditRepository. Each (case, service
// line) pair holds only its latest decision.
type AuditRepository struct {
	collection   pricingmongo.Collection
	tenantHelper *tenant.RepositoryHelper
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db pricingmongo.CollectionProvider) *AuditRepository {
	return &AuditRepository{
		collection:   db.Collection(CollectionDecisions),
		tenantHelper: tenant.NewRepositoryHelper(false),
	}
}

// Record upserts one row per priced line in a single unordered bulk write
func (r *AuditRepository) Record(ctx context.Context, run *domain.PricingRun) error {
	if run == nil || len(run.PricedLines) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(run.PricedLines))
	for _, l := range run.PricedLines {
		doc, err := newDecisionDocument(run, l)
		if err != nil {
			return err
		}
		models = append(models, replaceModel(bson.M{
			"caseId":        doc.CaseID,
			"serviceLineId": doc.ServiceLineID,
		}, doc))
	}

	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("record decisions of case %s run %s: %w", run.CaseID, run.RunID, err)
	}
	return nil
}

// FindByCase returns the recorded decisions of a case ordered by line id
func (r *AuditRepository) FindByCase(ctx context.Context, caseID string) ([]domain.PricingDecision, error) {
	filter, err := r.tenantHelper.WithTenantFilter(ctx, bson.M{"caseId": caseID})
	if err != nil {
		return nil, err
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(pricingmongo.SortAscending("serviceLineId")))
	if err != nil {
		return nil, fmt.Errorf("find decisions of case %s: %w", caseID, err)
	}
	docs, err := pricingmongo.DecodeAll[decisionDocument](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}

	decisions := make([]domain.PricingDecision, 0, len(docs))
	for _, d := range docs {
		decision, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}
