package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
	"github.com/kirillkom/research-assistant/internal/core/domain"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every record of a type",
	Long: `Reindex recomputes and stores embeddings for all projects or all funding
calls. Failures of individual records are counted and reported, not fatal.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rawTypes, _ := cmd.Flags().GetStringSlice("type")
		types, err := parseEmbeddedTypes(rawTypes)
		if err != nil {
			return err
		}

		return withApp(cmd, bootstrap.Options{}, func(ctx context.Context, app *bootstrap.App) error {
			for _, t := range types {
				report, err := app.Reindexer.ReindexAll(ctx, t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: total=%d indexed=%d failed=%d\n",
					report.Type, report.Total, report.Indexed, report.Failed)
			}
			return nil
		})
	},
}

func parseEmbeddedTypes(raw []string) ([]domain.RecordType, error) {
	types := make([]domain.RecordType, 0, len(raw))
	for _, r := range raw {
		t, ok := domain.ParseRecordType(r)
		if !ok || !t.Embedded() {
			return nil, fmt.Errorf("unsupported record type %q (want project or call)", r)
		}
		types = append(types, t)
	}
	return types, nil
}

func init() {
	reindexCmd.Flags().StringSlice("type", []string{string(domain.RecordProject), string(domain.RecordCall)}, "record types to reindex")

	rootCmd.AddCommand(reindexCmd)
}
