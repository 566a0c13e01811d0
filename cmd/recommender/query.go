package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/recommender/internal/domain/query"
	"github.com/kailas-cloud/recommender/internal/domain/recommendation"
)

func newQueryCmd(configPath *string) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query TEXT...",
		Short: "Run one recommendation in-process and print the ranked items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var k *int
			if cmd.Flags().Changed("top-k") {
				k = &topK
			}
			q, err := query.New(strings.Join(args, " "), k, a.limits)
			if err != nil {
				return fmt.Errorf("invalid query: %w", err)
			}

			resp, err := a.recommend.Recommend(ctx, q)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			return printRecommendations(cmd.OutOrStdout(), q, resp)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", query.DefaultTopK, "number of items to return")

	return cmd
}

func printRecommendations(w io.Writer, q query.Query, resp recommendation.Response) error {
	if _, err := fmt.Fprintf(w, "Top %d for %q (source: %s)\n", q.TopK(), q.Text(), resp.Source); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if resp.Count == 0 {
		_, err := fmt.Fprintln(w, "  no matching items")
		return err //nolint:wrapcheck // terminal output
	}
	for i, item := range resp.Results {
		if _, err := fmt.Fprintf(w, "%2d. %-40s %.4f\n", i+1, item.ProductName, item.SimilarityScore); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
