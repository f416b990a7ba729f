// Package events publishes and consumes "activity ingested" notifications
// over Kafka so a long-running server can refresh its precomputed rollups
// when historical activities arrive.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"runlytics/internal/observability"
)

// EventActivityIngested is the event_type header of ingest notifications
const EventActivityIngested = "activity.ingested"

// ActivityIngested announces that an activity was written to the store
type ActivityIngested struct {
	EventID    string    `json:"event_id"`
	ActivityID int64     `json:"activity_id"`
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id"`
	StartDate  time.Time `json:"start_date"`
	// Backfill is set when the activity is older than the freshness
	// window, which makes the precomputed rollups stale.
	Backfill   bool      `json:"backfill"`
	IngestedAt time.Time `json:"ingested_at"`
}

// MessageWriter is the part of kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ingest notifications to one topic
type Publisher struct {
	writer MessageWriter
	now    func() time.Time
}

// NewPublisher creates a publisher writing to topic on brokers
func NewPublisher(brokers []string, topic string) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	})
}

// NewPublisherWithWriter creates a publisher on an existing writer
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// PublishActivityIngested sends e, filling in EventID and IngestedAt when
// they are empty. Messages are keyed by activity so one activity's events
// stay ordered.
func (p *Publisher) PublishActivityIngested(ctx context.Context, e ActivityIngested) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.IngestedAt.IsZero() {
		e.IngestedAt = p.now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.ActivityID, 10)),
		Value: value,
		Time:  e.IngestedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventActivityIngested)},
			{Key: "event_id", Value: []byte(e.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		observability.RecordEvent("publish", "error")
		return fmt.Errorf("publishing activity %d: %w", e.ActivityID, err)
	}
	observability.RecordEvent("publish", "ok")
	return nil
}

// Close releases the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func decode(msg kafka.Message) (ActivityIngested, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return ActivityIngested{}, errors.New("missing event_type header")
	}
	if string(eventType) != EventActivityIngested {
		return ActivityIngested{}, fmt.Errorf("unexpected event type %q", eventType)
	}

	var e ActivityIngested
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return ActivityIngested{}, fmt.Errorf("decoding payload: %w", err)
	}
	return e, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
