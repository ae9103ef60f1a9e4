package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/mergington/internal/events"
)

func TestDispatcherDeliversBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := &stubWriter{}
	registry := &stubRegistry{id: 7}
	d := NewDispatcher(writer, DispatcherConfig{
		Topic:         "roster_events",
		BufferSize:    8,
		BatchSize:     2,
		FlushInterval: 10 * time.Millisecond,
	}, WithSchemaRegistry(registry), WithLogger(log.New(testWriter{t}, "", 0)))

	go d.Start(ctx)

	for _, email := range []string{"a@x.edu", "b@x.edu", "c@x.edu"} {
		require.NoError(t, d.Publish(ctx, rosterEvent(email)))
	}

	require.Eventually(t, func() bool {
		return len(writer.messages()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	d.Wait()

	msgs := writer.messages()
	require.Equal(t, "roster_events", writer.topic)
	require.Equal(t, 1, registry.calls, "schema ID should be cached")

	first := msgs[0]
	require.Equal(t, []byte("Chess Club"), first.Key)
	require.Equal(t, byte(0), first.Value[0])
	require.Equal(t, uint32(7), binary.BigEndian.Uint32(first.Value[1:5]))
	require.Equal(t, events.ParticipantSignedUp, headerString(first, "event_type"))
	require.Equal(t, "roster_events-value", headerString(first, "schema_subject"))

	var decoded events.RosterChanged
	require.NoError(t, json.Unmarshal(first.Value[5:], &decoded))
	require.Equal(t, "a@x.edu", decoded.Email)
	require.Equal(t, 3, decoded.ParticipantCount)
}

func TestDispatcherFlushesQueueOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &stubWriter{}
	d := NewDispatcher(writer, DispatcherConfig{Topic: "roster_events", BatchSize: 10, FlushInterval: time.Hour})

	require.NoError(t, d.Publish(context.Background(), rosterEvent("a@x.edu")))
	require.NoError(t, d.Publish(context.Background(), rosterEvent("b@x.edu")))

	d.Start(ctx)
	d.Wait()

	msgs := writer.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(msgs[0].Value[1:5]))
}

func TestDispatcherRejectsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(&stubWriter{}, DispatcherConfig{Topic: "roster_events", BufferSize: 1})
	before := testutil.ToFloat64(droppedCounter)

	require.NoError(t, d.Publish(context.Background(), rosterEvent("a@x.edu")))
	err := d.Publish(context.Background(), rosterEvent("b@x.edu"))

	require.ErrorIs(t, err, ErrQueueFull)
	require.Equal(t, before+1, testutil.ToFloat64(droppedCounter))
}

func TestDispatcherCountsDeliveryFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &stubWriter{err: errors.New("broker unavailable")}
	d := NewDispatcher(writer, DispatcherConfig{Topic: "roster_events"}, WithLogger(log.New(testWriter{t}, "", 0)))
	before := testutil.ToFloat64(failedCounter)

	require.NoError(t, d.Publish(context.Background(), rosterEvent("a@x.edu")))
	d.Start(ctx)

	require.Equal(t, before+1, testutil.ToFloat64(failedCounter))
}

func TestDispatcherSkipsBatchWhenRegistryFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &stubWriter{}
	registry := &stubRegistry{err: errors.New("registry down")}
	d := NewDispatcher(writer, DispatcherConfig{Topic: "roster_events"},
		WithSchemaRegistry(registry), WithLogger(log.New(testWriter{t}, "", 0)))

	require.NoError(t, d.Publish(context.Background(), rosterEvent("a@x.edu")))
	d.Start(ctx)

	require.Empty(t, writer.messages())
}

func rosterEvent(email string) events.RosterChanged {
	limit := 12
	return events.RosterChanged{
		EventID:          "evt-" + email,
		EventType:        events.ParticipantSignedUp,
		Activity:         "Chess Club",
		Email:            email,
		ParticipantCount: 3,
		MaxParticipants:  &limit,
		OccurredAt:       time.Date(2025, time.September, 1, 15, 30, 0, 0, time.UTC),
	}
}

func headerString(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

type stubWriter struct {
	mu    sync.Mutex
	topic string
	msgs  []kafka.Message
	err   error
}

func (w *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.topic = topic
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]kafka.Message, len(w.msgs))
	copy(out, w.msgs)
	return out
}

type stubRegistry struct {
	id    int
	err   error
	calls int
}

func (r *stubRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	r.calls++
	return r.id, r.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
