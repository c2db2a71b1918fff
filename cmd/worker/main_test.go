package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/kirillkom/research-assistant/internal/bootstrap"
	"github.com/kirillkom/research-assistant/internal/config"
	"github.com/kirillkom/research-assistant/internal/core/domain"
)

type failingQueue struct {
	err error
}

func (q failingQueue) PublishRecordChanged(context.Context, domain.RecordChange) error {
	return q.err
}

func (q failingQueue) SubscribeRecordChanged(context.Context, func(context.Context, domain.RecordChange) error) error {
	return q.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunClosesAppWhenSubscriptionFails(t *testing.T) {
	subscribeErr := errors.New("nats: connection closed")
	closed := false
	open := func(context.Context, config.Config, bootstrap.Options) (*bootstrap.App, error) {
		app := &bootstrap.App{Queue: failingQueue{err: subscribeErr}}
		app.OnClose(func() { closed = true })
		return app, nil
	}

	err := run(context.Background(), config.Config{WorkerMetricsPort: "0"}, discardLogger(), open)
	if !errors.Is(err, subscribeErr) {
		t.Fatalf("expected subscription error, got %v", err)
	}
	if !closed {
		t.Fatalf("expected app closers to run before run returns")
	}
}

func TestRunClosesAppWithoutQueue(t *testing.T) {
	closed := false
	open := func(context.Context, config.Config, bootstrap.Options) (*bootstrap.App, error) {
		app := &bootstrap.App{}
		app.OnClose(func() { closed = true })
		return app, nil
	}

	if err := run(context.Background(), config.Config{WorkerMetricsPort: "0"}, discardLogger(), open); err == nil {
		t.Fatalf("expected error for missing queue")
	}
	if !closed {
		t.Fatalf("expected app closers to run")
	}
}

func TestRunReportsBootstrapFailure(t *testing.T) {
	open := func(context.Context, config.Config, bootstrap.Options) (*bootstrap.App, error) {
		return nil, errors.New("neo4j unreachable")
	}

	if err := run(context.Background(), config.Config{}, discardLogger(), open); err == nil {
		t.Fatalf("expected bootstrap error")
	}
}
