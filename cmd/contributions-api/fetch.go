package main

import (
	"context"
	"fmt"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/lib/calendar"
	"github.com/deppfellow/contributions-api/internal/lib/github"
	"github.com/deppfellow/contributions-api/internal/lib/utils"
	"github.com/deppfellow/contributions-api/internal/logger"
	"github.com/deppfellow/contributions-api/internal/service"
	"github.com/deppfellow/contributions-api/internal/validation"
	"github.com/spf13/cobra"
)

func fetchCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fetch <username>",
		Short: "Scrape one user's calendar and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &validation.ContributionsRequest{Username: args[0], Format: format}
			if err := req.Validate(); err != nil {
				return fmt.Errorf("invalid arguments: %w", err)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log := logger.NewLogger(cfg.Observability)

			scraper, err := github.NewClientFromConfig(cfg.Scraper, nil, &log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			return fetch(ctx, cmd, scraper, req.Username, req.ResponseFormat())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(calendar.FormatDefault), "response shape: default, flat or nested")
	return cmd
}

func fetch(ctx context.Context, cmd *cobra.Command, scraper service.Scraper, username string, format calendar.Format) error {
	svc := service.NewContributionService(service.ContributionDeps{Scraper: scraper})

	result, err := svc.Get(ctx, username, format)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", username, err)
	}

	return utils.PrintJSON(cmd.OutOrStdout(), result)
}
