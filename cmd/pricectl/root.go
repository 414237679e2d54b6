package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/freight-platform/pricing-service/internal/domain"
	mongoRepo "github.com/freight-platform/pricing-service/internal/infrastructure/mongodb"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/mongodb"
)

type rootOptions struct {
	mongoURI string
	database string
	logLevel string
}

type caseStore interface {
	domain.CaseRepository
	UpsertAll(ctx context.Context, cases []domain.Case) error
}

type catalogStore interface {
	domain.RuleCatalog
	UpsertQuantityRules(ctx context.Context, rules []domain.QuantityRule) error
	UpsertUnitConversions(ctx context.Context, conversions []domain.UnitConversion) error
	UpsertRateCards(ctx context.Context, cards []domain.RateCard) error
}

type tariffStore interface {
	domain.TariffRepository
	UpsertAll(ctx context.Context, tariffs []domain.Tariff) error
}

// backend is the storage the commands work against
type backend struct {
	cases         caseStore
	catalog       catalogStore
	tariffs       tariffStore
	audit         domain.AuditRepository
	ensureIndexes func(ctx context.Context) error
	close         func(ctx context.Context) error
}

var openBackend = func(ctx context.Context, opts *rootOptions, logger *logging.Logger) (*backend, error) {
	cfg := mongodb.DefaultConfig()
	cfg.URI = opts.mongoURI
	cfg.Database = opts.database

	client, err := mongodb.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db := mongodb.NewInstrumentedClient(client, nil, logger)

	return &backend{
		cases:   mongoRepo.NewCaseRepository(db),
		catalog: mongoRepo.NewCatalogRepository(db),
		tariffs: mongoRepo.NewTariffRepository(db),
		audit:   mongoRepo.NewAuditRepository(db),
		ensureIndexes: func(ctx context.Context) error {
			return mongoRepo.EnsureIndexes(ctx, db)
		},
		close: db.Close,
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "pricectl",
		Short: "Operate the freight service-line pricing engine",
		Long: `pricectl loads quantity rules, unit conversions, rate cards, tariffs and
cases into the pricing database, and runs pricing for a case without going
through the HTTP API.

Examples:
  pricectl seed --file catalog.yaml
  pricectl price --case CASE-2026-0042 --file lines.yaml --tenant agency-1`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.mongoURI, "mongodb-uri", envOr("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&opts.database, "database", envOr("MONGODB_DATABASE", "pricing_db"), "MongoDB database name")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSeedCmd(opts))
	rootCmd.AddCommand(newPriceCmd(opts))
	rootCmd.AddCommand(newDecisionsCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) logger(cmd *cobra.Command) *logging.Logger {
	cfg := logging.DefaultConfig("pricectl")
	cfg.Level = logging.LogLevel(o.logLevel)
	cfg.Output = cmd.ErrOrStderr()
	return logging.New(cfg)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
