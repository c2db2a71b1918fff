package nats

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/research-assistant/internal/core/domain"
	"github.com/kirillkom/research-assistant/internal/infrastructure/resilience"
)

const (
	clientName        = "research-assistant"
	defaultQueueGroup = "reindexers"
)

// Queue carries record change events over core NATS. Workers share a queue
// group so each change is reindexed once.
type Queue struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// FailFast disables retrying the initial connection.
	FailFast           bool
	QueueGroup         string
	ResilienceExecutor *resilience.Executor
}

func (o Options) connectOptions() []nats.Option {
	return []nats.Option{
		nats.Name(clientName),
		nats.Timeout(durationOr(o.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(durationOr(o.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(cmp.Or(max(o.MaxReconnects, 0), 60)),
		nats.RetryOnFailedConnect(!o.FailFast),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats_async_error", "subject", subject, "error", err)
		}),
	}
}

func Connect(url, subject string, opts Options) (*Queue, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("nats subject is required")
	}
	conn, err := nats.Connect(url, opts.connectOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		group:    cmp.Or(opts.QueueGroup, defaultQueueGroup),
		executor: opts.ResilienceExecutor,
	}, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ping reports whether the connection is currently usable.
func (q *Queue) Ping(context.Context) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return domain.WrapError(domain.ErrTemporary, "nats ping", nats.ErrDisconnected)
	}
	return nil
}

func (q *Queue) PublishRecordChanged(ctx context.Context, change domain.RecordChange) error {
	payload, err := encodeRecordChange(change)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, publishOperation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return resilience.MarkTemporary(publishOperation, err, classifyNATSError)
}

// SubscribeRecordChanged blocks until ctx is done, handing every decoded
// change to handler. Undecodable messages are logged and dropped.
func (q *Queue) SubscribeRecordChanged(ctx context.Context, handler func(context.Context, domain.RecordChange) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		change, err := decodeRecordChange(msg.Data)
		if err != nil {
			slog.Warn("record_event_invalid", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, change); err != nil {
			slog.Error("record_event_handler_failed", "type", change.Type, "id", change.ID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeRecordChange(change domain.RecordChange) ([]byte, error) {
	if _, ok := domain.ParseRecordType(string(change.Type)); !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode record change", fmt.Errorf("unknown record type %q", change.Type))
	}
	if strings.TrimSpace(change.ID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode record change", errors.New("record id is required"))
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshal record change: %w", err)
	}
	return payload, nil
}

func decodeRecordChange(data []byte) (domain.RecordChange, error) {
	var change domain.RecordChange
	if err := json.Unmarshal(data, &change); err != nil {
		return domain.RecordChange{}, fmt.Errorf("unmarshal record change: %w", err)
	}
	if _, ok := domain.ParseRecordType(string(change.Type)); !ok {
		return domain.RecordChange{}, fmt.Errorf("unknown record type %q", change.Type)
	}
	if strings.TrimSpace(change.ID) == "" {
		return domain.RecordChange{}, errors.New("record id is required")
	}
	return change, nil
}
