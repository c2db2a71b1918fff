package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
	"github.com/kirillkom/research-assistant/internal/config"
	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/observability/logging"
	"github.com/kirillkom/research-assistant/internal/observability/metrics"
)

const reindexTimeout = 2 * time.Minute

type appOpener func(ctx context.Context, cfg config.Config, opts bootstrap.Options) (*bootstrap.App, error)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger, bootstrap.New)
	stop()
	if err != nil {
		logger.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

// run returns only after the app's closers have run.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, open appOpener) error {
	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := open(ctx, cfg, bootstrap.Options{Queue: true, Upstream: workerMetrics})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if app.Queue == nil {
		return errors.New("record event queue is not configured")
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
		return app.Queue.SubscribeRecordChanged(gctx, func(handlerCtx context.Context, change domain.RecordChange) error {
			reindexCtx, cancel := context.WithTimeout(handlerCtx, reindexTimeout)
			defer cancel()

			workerMetrics.StartReindex()
			start := time.Now()
			err := app.Reindexer.ReindexRecord(reindexCtx, change)
			workerMetrics.FinishReindex(string(change.Type), time.Since(start), err)
			if err == nil {
				logger.Info("record_reindexed", "type", change.Type, "id", change.ID, "duration_ms", time.Since(start).Milliseconds())
			}
			return err
		})
	})

	return g.Wait()
}
