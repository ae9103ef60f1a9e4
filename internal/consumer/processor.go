// Package consumer reads roster events from Kafka for the audit trail.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/mergington/internal/events"
)

// Reader is the subset of *kafka.Reader the processor drives.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler applies one roster event. Events of an activity arrive in the order
// they were committed to its roster.
type Handler interface {
	Handle(context.Context, Event) error
}

// Event is a decoded roster change plus where it was read from.
type Event struct {
	events.RosterChanged
	Partition int
	Offset    int64
	SchemaID  int
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetry sets how many times a failing event is handed to the handler and
// the delay before the first retry. The delay doubles on each further retry.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

// WithDedupWindow sets how many recent event IDs are remembered to drop
// redelivered events.
func WithDedupWindow(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.seen = newRecentIDs(size)
		}
	}
}

// Processor fetches roster records, decodes them and applies them through a
// Handler, committing each record once it is settled.
type Processor struct {
	reader   Reader
	handler  Handler
	logger   *log.Logger
	attempts int
	backoff  time.Duration
	seen     *recentIDs
}

const maxBackoff = 30 * time.Second

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:   reader,
		handler:  handler,
		logger:   log.New(log.Writer(), "[consumer] ", log.LstdFlags),
		attempts: 5,
		backoff:  200 * time.Millisecond,
		seen:     newRecentIDs(1024),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is done.
//
// kafka-go moves past a fetched record whether or not it is committed, so a
// failing event is retried in place with backoff. When the retries run out the
// event is logged, counted and committed. If ctx ends while an event is still
// failing, Run returns without committing it and the group resumes from that
// record on the next start.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		if err := p.settle(ctx, record); err != nil {
			return err
		}

		if err := p.reader.CommitMessages(ctx, record); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Printf("commit error (partition=%d offset=%d): %v", record.Partition, record.Offset, err)
		}
	}
}

// settle decides the fate of one record. It only returns an error when ctx
// ends before the record could be settled.
func (p *Processor) settle(ctx context.Context, record kafka.Message) error {
	evt, err := decodeRecord(record)
	if err != nil {
		var rejected *rejectError
		reason := "payload"
		if errors.As(err, &rejected) {
			reason = rejected.reason
		}
		p.logger.Printf("rejecting record (partition=%d offset=%d): %v", record.Partition, record.Offset, err)
		recordRejected(reason)
		return nil
	}

	if p.seen.contains(evt.EventID) {
		recordDuplicate()
		return nil
	}

	delay := p.backoff
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, evt)
		if err == nil {
			p.seen.add(evt.EventID)
			recordHandled(evt)
			return nil
		}
		if attempt >= p.attempts {
			p.logger.Printf("giving up on %s event_id=%s after %d attempts: %v", evt.EventType, evt.EventID, attempt, err)
			recordHandlerFailure(evt.EventType, "abandoned")
			return nil
		}

		p.logger.Printf("handler error on %s event_id=%s (attempt %d, retrying in %s): %v", evt.EventType, evt.EventID, attempt, delay, err)
		recordHandlerFailure(evt.EventType, "retried")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoff)
	}
}

type rejectError struct {
	reason string
	err    error
}

func (e *rejectError) Error() string { return e.reason + ": " + e.err.Error() }

func (e *rejectError) Unwrap() error { return e.err }

func reject(reason, format string, args ...any) error {
	return &rejectError{reason: reason, err: fmt.Errorf(format, args...)}
}

// decodeRecord unwraps the Confluent frame written by the outbox and decodes
// the roster payload. Headers fill in identifiers the payload omits.
func decodeRecord(record kafka.Message) (Event, error) {
	if len(record.Value) < 5 {
		return Event{}, reject("framing", "record of %d bytes is shorter than the frame header", len(record.Value))
	}
	if record.Value[0] != 0 {
		return Event{}, reject("framing", "unknown magic byte %d", record.Value[0])
	}

	eventType, ok := header(record, "event_type")
	if !ok {
		return Event{}, reject("header", "missing event_type header")
	}
	switch eventType {
	case events.ParticipantSignedUp, events.ParticipantUnregistered:
	default:
		return Event{}, reject("unknown_type", "event_type %q is not a roster change", eventType)
	}

	var change events.RosterChanged
	if err := json.Unmarshal(record.Value[5:], &change); err != nil {
		return Event{}, reject("payload", "decode %s payload: %w", eventType, err)
	}
	if change.EventType == "" {
		change.EventType = eventType
	} else if change.EventType != eventType {
		return Event{}, reject("header", "event_type header %q disagrees with payload %q", eventType, change.EventType)
	}
	if change.EventID == "" {
		change.EventID, _ = header(record, "event_id")
	}
	if change.Activity == "" {
		return Event{}, reject("payload", "%s event without activity", eventType)
	}

	return Event{
		RosterChanged: change,
		Partition:     record.Partition,
		Offset:        record.Offset,
		SchemaID:      int(binary.BigEndian.Uint32(record.Value[1:5])),
	}, nil
}

func header(record kafka.Message, key string) (string, bool) {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

// recentIDs remembers the last N event IDs in arrival order.
type recentIDs struct {
	ids   map[string]struct{}
	order []string
	next  int
}

func newRecentIDs(size int) *recentIDs {
	return &recentIDs{ids: make(map[string]struct{}, size), order: make([]string, size)}
}

func (r *recentIDs) contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.ids[id]
	return ok
}

func (r *recentIDs) add(id string) {
	if id == "" || r.contains(id) {
		return
	}
	if old := r.order[r.next]; old != "" {
		delete(r.ids, old)
	}
	r.order[r.next] = id
	r.ids[id] = struct{}{}
	r.next = (r.next + 1) % len(r.order)
}
