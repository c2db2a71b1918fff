// Command researchctl runs searches, reindexes embeddings and publishes
// record change events from the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
	"github.com/kirillkom/research-assistant/internal/config"
	"github.com/kirillkom/research-assistant/internal/observability/logging"
)

var rootCmd = &cobra.Command{
	Use:   "researchctl",
	Short: "Operate the research assistant search pipeline",
	Long: `researchctl talks to the same Neo4j graph, model provider and search log as
the API. Configuration is read from the environment, exactly as for the api
and worker binaries.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = config.Load().LogLevel
		}
		slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "researchctl", level))
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (default: LOG_LEVEL or info)")
}

// withApp builds the application for the duration of one command.
func withApp(cmd *cobra.Command, opts bootstrap.Options, run func(ctx context.Context, app *bootstrap.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, config.Load(), opts)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	return run(ctx, app)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
