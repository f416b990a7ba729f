package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	messages []kafka.Message
	err      error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestPublishActivityIngested(t *testing.T) {
	w := &memWriter{}
	p := NewPublisherWithWriter(w)
	p.now = func() time.Time { return time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC) }

	start := time.Date(2026, 1, 3, 7, 0, 0, 0, time.UTC)
	err := p.PublishActivityIngested(context.Background(), ActivityIngested{
		ActivityID: 42,
		Source:     "fit",
		ExternalID: "abc",
		StartDate:  start,
		Backfill:   true,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	eventType, ok := headerValue(msg, "event_type")
	require.True(t, ok)
	assert.Equal(t, EventActivityIngested, string(eventType))

	var got ActivityIngested
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.NotEmpty(t, got.EventID)
	assert.True(t, got.Backfill)
	assert.True(t, got.StartDate.Equal(start))
	assert.Equal(t, time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC), got.IngestedAt)
}

func TestPublishActivityIngested_WriterError(t *testing.T) {
	p := NewPublisherWithWriter(&memWriter{err: errors.New("broker down")})
	err := p.PublishActivityIngested(context.Background(), ActivityIngested{ActivityID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func encoded(t *testing.T, e ActivityIngested) kafka.Message {
	t.Helper()
	w := &memWriter{}
	require.NoError(t, NewPublisherWithWriter(w).PublishActivityIngested(context.Background(), e))
	return w.messages[0]
}

func TestSubscriberDispatchesAndCommits(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{
		encoded(t, ActivityIngested{ActivityID: 7, Backfill: true}),
	}}

	var got []ActivityIngested
	handler := HandlerFunc(func(_ context.Context, e ActivityIngested) error {
		got = append(got, e)
		return nil
	})

	sub := NewSubscriberWithReader(reader, handler, slog.New(slog.DiscardHandler))
	err := sub.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ActivityID)
	assert.Equal(t, 1, reader.commitCalls)
}

func TestSubscriberCommitsMalformedAndSkipsFailedHandler(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{
		{Value: []byte("not json")}, // no event_type header
		encoded(t, ActivityIngested{ActivityID: 8}),
	}}

	calls := 0
	handler := HandlerFunc(func(context.Context, ActivityIngested) error {
		calls++
		return errors.New("rebuild failed")
	})

	sub := NewSubscriberWithReader(reader, handler, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, sub.Run(context.Background()), context.Canceled)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, reader.commitCalls, "only the malformed message is committed")
}
