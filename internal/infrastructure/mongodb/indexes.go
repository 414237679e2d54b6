package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
)

func unique(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
}

// EnsureIndexes creates the indexes of every pricing collection
func EnsureIndexes(ctx context.Context, db pricingmongo.CollectionProvider) error {
	plan := map[string][]mongo.IndexModel{
		CollectionCases: {
			unique(bson.D{{Key: "caseId", Value: 1}}),
			{Keys: bson.D{{Key: "tenantId", Value: 1}}},
		},
		CollectionQuantityRules: {
			unique(bson.D{{Key: "serviceKey", Value: 1}}),
		},
		CollectionUnitConversions: {
			unique(bson.D{{Key: "containerType", Value: 1}}),
		},
		CollectionRateCards: {
			unique(bson.D{{Key: "rateCardId", Value: 1}}),
			{Keys: bson.D{
				{Key: "serviceKey", Value: 1},
				{Key: "scope", Value: 1},
				{Key: "effectiveFrom", Value: 1},
			}},
		},
		CollectionTariffs: {
			unique(bson.D{{Key: "tariffId", Value: 1}}),
			{Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "operation", Value: 1},
				{Key: "active", Value: 1},
				{Key: "effectiveDate", Value: -1},
			}},
		},
		CollectionDecisions: {
			unique(bson.D{{Key: "caseId", Value: 1}, {Key: "serviceLineId", Value: 1}}),
			{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "caseId", Value: 1}}},
		},
	}

	for _, name := range []string{
		CollectionCases, CollectionQuantityRules, CollectionUnitConversions,
		CollectionRateCards, CollectionTariffs, CollectionDecisions,
	} {
		if err := pricingmongo.EnsureIndexes(ctx, db.Collection(name), plan[name]...); err != nil {
			return err
		}
	}
	return nil
}
