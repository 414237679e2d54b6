package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freight-platform/pricing-service/internal/domain"
	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
)

// CatalogRepository implements domain.RuleCatalog over three collections
type CatalogRepository struct {
	rules       pricingmongo.Collection
	conversions pricingmongo.Collection
	rateCards   pricingmongo.Collection
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db pricingmongo.CollectionProvider) *CatalogRepository {
	return &CatalogRepository{
		rules:       db.Collection(CollectionQuantityRules),
		conversions: db.Collection(CollectionUnitConversions),
		rateCards:   db.Collection(CollectionRateCards),
	}
}

// QuantityRules returns every quantity rule
func (r *CatalogRepository) QuantityRules(ctx context.Context) ([]domain.QuantityRule, error) {
	cursor, err := r.rules.Find(ctx, bson.M{}, options.Find().SetSort(pricingmongo.SortAscending("serviceKey")))
	if err != nil {
		return nil, fmt.Errorf("find quantity rules: %w", err)
	}
	rules, err := pricingmongo.DecodeAll[domain.QuantityRule](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("decode quantity rules: %w", err)
	}
	return rules, nil
}

// UnitConversions returns every container conversion
func (r *CatalogRepository) UnitConversions(ctx context.Context) ([]domain.UnitConversion, error) {
	cursor, err := r.conversions.Find(ctx, bson.M{}, options.Find().SetSort(pricingmongo.SortAscending("containerType")))
	if err != nil {
		return nil, fmt.Errorf("find unit conversions: %w", err)
	}
	conversions, err := pricingmongo.DecodeAll[domain.UnitConversion](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("decode unit conversions: %w", err)
	}
	return conversions, nil
}

// RateCardsInForce returns the cards whose validity window contains asOf,
// ordered by id
func (r *CatalogRepository) RateCardsInForce(ctx context.Context, asOf time.Time) ([]domain.RateCard, error) {
	cursor, err := r.rateCards.Find(ctx, inForceFilter(asOf), options.Find().SetSort(pricingmongo.SortAscending("rateCardId")))
	if err != nil {
		return nil, fmt.Errorf("find rate cards: %w", err)
	}
	docs, err := pricingmongo.DecodeAll[rateCardDocument](ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("decode rate cards: %w", err)
	}

	cards := make([]domain.RateCard, 0, len(docs))
	for _, d := range docs {
		card, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// inForceFilter matches open or containing validity windows. A null bound
// matches like a missing one.
func inForceFilter(asOf time.Time) bson.M {
	return bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{
			bson.M{"effectiveFrom": nil},
			bson.M{"effectiveFrom": bson.M{"$lte": asOf}},
		}},
		bson.M{"$or": bson.A{
			bson.M{"effectiveTo": nil},
			bson.M{"effectiveTo": bson.M{"$gte": asOf}},
		}},
	}}
}

// UpsertQuantityRules replaces rules by service key
func (r *CatalogRepository) UpsertQuantityRules(ctx context.Context, rules []domain.QuantityRule) error {
	models := make([]mongo.WriteModel, len(rules))
	for i := range rules {
		models[i] = replaceModel(bson.M{"serviceKey": rules[i].ServiceKey}, rules[i])
	}
	return bulkUpsert(ctx, r.rules, models)
}

// UpsertUnitConversions replaces conversions by container type
func (r *CatalogRepository) UpsertUnitConversions(ctx context.Context, conversions []domain.UnitConversion) error {
	models := make([]mongo.WriteModel, len(conversions))
	for i := range conversions {
		c := conversions[i]
		c.ContainerType = domain.NormalizeContainerType(c.ContainerType)
		models[i] = replaceModel(bson.M{"containerType": c.ContainerType}, c)
	}
	return bulkUpsert(ctx, r.conversions, models)
}

// UpsertRateCards replaces cards by id
func (r *CatalogRepository) UpsertRateCards(ctx context.Context, cards []domain.RateCard) error {
	models := make([]mongo.WriteModel, len(cards))
	for i := range cards {
		doc, err := newRateCardDocument(cards[i])
		if err != nil {
			return err
		}
		models[i] = replaceModel(bson.M{"rateCardId": doc.ID}, doc)
	}
	return bulkUpsert(ctx, r.rateCards, models)
}

func replaceModel(filter bson.M, replacement interface{}) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(filter).
		SetReplacement(replacement).
		SetUpsert(true)
}

func bulkUpsert(ctx context.Context, coll pricingmongo.Collection, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upsert %s: %w", coll.Name(), err)
	}
	return nil
}
