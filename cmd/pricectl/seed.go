package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type seedOptions struct {
	file      string
	noIndexes bool
}

// seedCounts reports how many rows of each table were written
type seedCounts struct {
	Rules, Conversions, RateCards, Tariffs, Cases int
}

func newSeedCmd(root *rootOptions) *cobra.Command {
	opts := &seedOptions{}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a catalog YAML file into the pricing database",
		Long: `Upsert quantity rules, unit conversions, rate cards, tariffs and cases from a
YAML file. Rows are keyed by their ids, so seeding the same file twice leaves
the database unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCatalogFile(opts.file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := root.logger(cmd)
			b, err := openBackend(ctx, root, logger)
			if err != nil {
				return fmt.Errorf("connect to MongoDB: %w", err)
			}
			defer b.close(context.Background())

			if !opts.noIndexes {
				if err := b.ensureIndexes(ctx); err != nil {
					return fmt.Errorf("ensure indexes: %w", err)
				}
			}

			counts, err := seed(ctx, b, data)
			if err != nil {
				return err
			}
			logger.Info("Catalog seeded", "database", root.database, "rules", counts.Rules, "rateCards", counts.RateCards)

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d quantity rules, %d unit conversions, %d rate cards, %d tariffs, %d cases\n",
				counts.Rules, counts.Conversions, counts.RateCards, counts.Tariffs, counts.Cases)
			return nil
		},
	}

	seedCmd.Flags().StringVarP(&opts.file, "file", "f", "", "Catalog YAML file")
	seedCmd.Flags().BoolVar(&opts.noIndexes, "no-indexes", false, "Skip index creation")
	_ = seedCmd.MarkFlagRequired("file")

	return seedCmd
}

func seed(ctx context.Context, b *backend, data *seedData) (seedCounts, error) {
	if err := b.catalog.UpsertQuantityRules(ctx, data.Rules); err != nil {
		return seedCounts{}, fmt.Errorf("seed quantity rules: %w", err)
	}
	if err := b.catalog.UpsertUnitConversions(ctx, data.Conversions); err != nil {
		return seedCounts{}, fmt.Errorf("seed unit conversions: %w", err)
	}
	if err := b.catalog.UpsertRateCards(ctx, data.RateCards); err != nil {
		return seedCounts{}, fmt.Errorf("seed rate cards: %w", err)
	}
	if err := b.tariffs.UpsertAll(ctx, data.Tariffs); err != nil {
		return seedCounts{}, fmt.Errorf("seed tariffs: %w", err)
	}
	if err := b.cases.UpsertAll(ctx, data.Cases); err != nil {
		return seedCounts{}, fmt.Errorf("seed cases: %w", err)
	}

	return seedCounts{
		Rules:       len(data.Rules),
		Conversions: len(data.Conversions),
		RateCards:   len(data.RateCards),
		Tariffs:     len(data.Tariffs),
		Cases:       len(data.Cases),
	}, nil
}
