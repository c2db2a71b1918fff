package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
	"github.com/kirillkom/research-assistant/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search projects, funding calls and researchers",
	Long: `Search runs the hybrid retrieval pipeline for the given query and prints the
synthesized answer followed by the ranked sources. Use --no-answer to skip
generation and --export to write the ranked results to an XLSX workbook.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		profile, _ := cmd.Flags().GetString("profile")
		noAnswer, _ := cmd.Flags().GetBool("no-answer")
		asJSON, _ := cmd.Flags().GetBool("json")
		exportPath, _ := cmd.Flags().GetString("export")

		return withApp(cmd, bootstrap.Options{}, func(ctx context.Context, app *bootstrap.App) error {
			var (
				resp *domain.SearchResponse
				err  error
			)
			if noAnswer || exportPath != "" {
				resp, err = app.Search.Search(ctx, query, profile)
			} else {
				resp, err = app.Search.Synthesize(ctx, query, profile)
			}
			if err != nil {
				return err
			}

			if exportPath != "" {
				return exportResults(app, exportPath, query, resp)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResponse(cmd, resp)
			return nil
		})
	},
}

func exportResults(app *bootstrap.App, path, query string, resp *domain.SearchResponse) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return app.Exporter.Export(f, query, resp)
}

func printResponse(cmd *cobra.Command, resp *domain.SearchResponse) {
	out := cmd.OutOrStdout()
	if resp.RefinedQuery != "" {
		fmt.Fprintf(out, "Refined query: %s\n\n", resp.RefinedQuery)
	}
	if resp.Answer != "" {
		fmt.Fprintln(out, resp.Answer)
		fmt.Fprintln(out)
	}
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%2d. [%s] %s", i+1, r.Type, r.Title)
		if r.Source != "" {
			fmt.Fprintf(out, " - %s", r.Source)
		}
		fmt.Fprintf(out, " (%.3f)\n", r.Score)
	}
}

func init() {
	searchCmd.Flags().String("profile", "", "pipeline profile name")
	searchCmd.Flags().Bool("no-answer", false, "skip answer synthesis")
	searchCmd.Flags().Bool("json", false, "output the response as JSON")
	searchCmd.Flags().String("export", "", "write ranked results to this XLSX file")

	rootCmd.AddCommand(searchCmd)
}
