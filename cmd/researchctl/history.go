package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent searches from the search log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, bootstrap.Options{}, func(ctx context.Context, app *bootstrap.App) error {
			if app.History == nil {
				return errors.New("search log is disabled (SEARCH_LOG_ENABLED=false)")
			}
			entries, err := app.History.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s results=%-3d fallback=%-5t %q\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Profile, e.ResultCount, e.Fallback, e.Query)
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of entries")

	rootCmd.AddCommand(historyCmd)
}
