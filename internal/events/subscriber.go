package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"runlytics/internal/observability"
)

// Reader exposes the minimal kafka.Reader interface needed by the subscriber
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded ingest notifications
type Handler interface {
	HandleActivityIngested(ctx context.Context, e ActivityIngested) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, e ActivityIngested) error

// HandleActivityIngested calls f
func (f HandlerFunc) HandleActivityIngested(ctx context.Context, e ActivityIngested) error {
	return f(ctx, e)
}

// Subscriber pulls ingest notifications and dispatches them to a Handler
type Subscriber struct {
	reader  Reader
	handler Handler
	logger  *slog.Logger
}

// NewSubscriber creates a consumer-group subscriber on topic
func NewSubscriber(brokers []string, topic, groupID string, handler Handler, logger *slog.Logger) *Subscriber {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: time.Second,
	})
	return NewSubscriberWithReader(reader, handler, logger)
}

// NewSubscriberWithReader creates a subscriber on an existing reader
func NewSubscriberWithReader(reader Reader, handler Handler, logger *slog.Logger) *Subscriber {
	return &Subscriber{reader: reader, handler: handler, logger: logger}
}

// Run processes messages until ctx is cancelled. Malformed messages are
// committed and skipped; handler failures are left uncommitted so the
// group redelivers them.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.Warn("fetch failed", "err", err)
			continue
		}

		event, err := decode(msg)
		if err != nil {
			s.logger.Warn("dropping malformed event",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			observability.RecordEvent("consume", "malformed")
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				s.logger.Warn("commit failed", "err", err)
			}
			continue
		}

		if err := s.handler.HandleActivityIngested(ctx, event); err != nil {
			s.logger.Error("handler failed", "activity_id", event.ActivityID, "err", err)
			observability.RecordEvent("consume", "error")
			continue
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Warn("commit failed", "err", err)
			continue
		}
		observability.RecordEvent("consume", "ok")
	}
}

// Close releases the reader
func (s *Subscriber) Close() error {
	return s.reader.Close()
}
