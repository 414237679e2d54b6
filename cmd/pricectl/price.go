package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freight-platform/pricing-service/internal/application"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/middleware"
	"github.com/freight-platform/pricing-service/pkg/tenant"
)

type priceOptions struct {
	caseID     string
	file       string
	tenantID   string
	minScore   int
	strictDisc bool
}

func newPriceCmd(root *rootOptions) *cobra.Command {
	opts := &priceOptions{}

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Price the service lines of a case",
		Long: `Resolve rates for the service lines listed in a YAML file and print the
result as JSON. Decisions are recorded in the audit collection exactly as the
API would record them. No event is published.

The file holds an optional caseId and a list of lines:

  caseId: CASE-2026-0042
  lines:
    - id: l-1
      serviceKey: terminal_handling
      currency: XOF`,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := readPriceFile(opts.file)
			if err != nil {
				return err
			}
			if opts.caseID != "" {
				command.CaseID = opts.caseID
			}

			ctx := cmd.Context()
			logger := root.logger(cmd)
			b, err := openBackend(ctx, root, logger)
			if err != nil {
				return fmt.Errorf("connect to MongoDB: %w", err)
			}
			defer b.close(context.Background())

			service := newCLIPricingService(b, opts, logger)
			result, err := service.PriceCase(withTenant(ctx, opts.tenantID), *command)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	priceCmd.Flags().StringVarP(&opts.caseID, "case", "c", "", "Case id (overrides caseId in the file)")
	priceCmd.Flags().StringVarP(&opts.file, "file", "f", "", "Service lines YAML file")
	priceCmd.Flags().StringVar(&opts.tenantID, "tenant", "", "Act as this tenant; ownership is checked when set")
	priceCmd.Flags().IntVar(&opts.minScore, "min-score", application.DefaultPricingConfig().Matcher.MinScore, "Minimum rate card score")
	priceCmd.Flags().BoolVar(&opts.strictDisc, "require-discriminator", false, "Require a matching discriminator on the chosen card")
	_ = priceCmd.MarkFlagRequired("file")

	return priceCmd
}

func newDecisionsCmd(root *rootOptions) *cobra.Command {
	var caseID, tenantID string

	decisionsCmd := &cobra.Command{
		Use:   "decisions",
		Short: "Print the recorded decisions of a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := root.logger(cmd)
			b, err := openBackend(ctx, root, logger)
			if err != nil {
				return fmt.Errorf("connect to MongoDB: %w", err)
			}
			defer b.close(context.Background())

			service := newCLIPricingService(b, &priceOptions{tenantID: tenantID}, logger)
			decisions, err := service.GetDecisions(withTenant(ctx, tenantID), application.GetDecisionsQuery{CaseID: caseID})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), decisions)
		},
	}

	decisionsCmd.Flags().StringVarP(&caseID, "case", "c", "", "Case id")
	decisionsCmd.Flags().StringVar(&tenantID, "tenant", "", "Restrict to this tenant")
	_ = decisionsCmd.MarkFlagRequired("case")

	return decisionsCmd
}

func newCLIPricingService(b *backend, opts *priceOptions, logger *logging.Logger) *application.PricingService {
	config := application.DefaultPricingConfig()
	config.Matcher.MinScore = opts.minScore
	config.Matcher.RequireDiscriminatorMatch = opts.strictDisc
	if opts.minScore <= 0 {
		config.Matcher.MinScore = application.DefaultPricingConfig().Matcher.MinScore
	}

	return application.NewPricingService(
		b.cases,
		b.catalog,
		b.tariffs,
		b.audit,
		application.NewTenantCaseAuthorizer(opts.tenantID != ""),
		nil,
		config,
		logger,
		nil,
	)
}

func readPriceFile(path string) (*application.PriceCaseCommand, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lines file: %w", err)
	}
	var command application.PriceCaseCommand
	if err := yaml.Unmarshal(raw, &command); err != nil {
		return nil, fmt.Errorf("parse lines file: %w", err)
	}
	if appErr := middleware.ValidateStruct(&command); appErr != nil {
		return nil, appErr
	}
	return &command, nil
}

func withTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return ctx
	}
	return tenant.ToContext(ctx, &tenant.Context{TenantID: tenantID, UserID: "pricectl"})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
