package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
	"github.com/kirillkom/research-assistant/internal/core/domain"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Publish a record change event for the reindex worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recordType, _ := cmd.Flags().GetString("type")
		id, _ := cmd.Flags().GetString("id")
		change := domain.RecordChange{Type: domain.RecordType(recordType), ID: id}

		return withApp(cmd, bootstrap.Options{Queue: true}, func(ctx context.Context, app *bootstrap.App) error {
			if err := app.Queue.PublishRecordChanged(ctx, change); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s\n", change.Type, change.ID)
			return nil
		})
	},
}

func init() {
	notifyCmd.Flags().String("type", "", "record type (project or call)")
	notifyCmd.Flags().String("id", "", "record id")
	_ = notifyCmd.MarkFlagRequired("type")
	_ = notifyCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(notifyCmd)
}
