// Package outbox queues roster events in memory and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/mergington/internal/events"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// DispatcherConfig contains tunables for the Dispatcher.
type DispatcherConfig struct {
	Topic         string
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger used to report delivery errors.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithSchemaRegistry frames payloads with schema IDs from the given registry.
// Without one every payload carries schema ID 0.
func WithSchemaRegistry(registry schemaRegistrar) Option {
	return func(d *Dispatcher) {
		d.registry = registry
	}
}

// Dispatcher buffers roster events and delivers them to Kafka in batches.
type Dispatcher struct {
	producer      messageWriter
	registry      schemaRegistrar
	logger        *log.Logger
	topic         string
	batchSize     int
	flushInterval time.Duration
	queue         chan Message
	schemaIDCache sync.Map
	done          chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(producer messageWriter, cfg DispatcherConfig, opts ...Option) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	d := &Dispatcher{
		producer:      producer,
		logger:        log.New(log.Writer(), "[outbox] ", log.LstdFlags),
		topic:         cfg.Topic,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan Message, cfg.BufferSize),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish enqueues evt without blocking. It returns ErrQueueFull when the
// buffer has no room.
func (d *Dispatcher) Publish(_ context.Context, evt events.RosterChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode roster event: %w", err)
	}

	msg := Message{
		EventID:      evt.EventID,
		EventType:    evt.EventType,
		PartitionKey: evt.Activity,
		Payload:      payload,
		OccurredAt:   evt.OccurredAt,
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		droppedCounter.Inc()
		return ErrQueueFull
	}
}

// Start runs the delivery loop until ctx is cancelled, then flushes whatever
// is still queued. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.flushInterval)
	defer func() {
		ticker.Stop()
		close(d.done)
	}()

	batch := make([]Message, 0, d.batchSize)
	for {
		select {
		case <-ctx.Done():
			batch = d.drain(batch)
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			d.flush(flushCtx, batch)
			cancel()
			return
		case msg := <-d.queue:
			batch = append(batch, msg)
			if len(batch) >= d.batchSize {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// Wait blocks until the delivery loop has stopped.
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) drain(batch []Message) []Message {
	for {
		select {
		case msg := <-d.queue:
			batch = append(batch, msg)
		default:
			return batch
		}
	}
}

func (d *Dispatcher) flush(ctx context.Context, batch []Message) {
	if len(batch) == 0 {
		return
	}
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if err := d.deliver(ctx, batch); err != nil {
		d.logger.Printf("delivery failure (%d events): %v", len(batch), err)
		failedCounter.Add(float64(len(batch)))
		return
	}
	deliveredCounter.Add(float64(len(batch)))
}

func (d *Dispatcher) deliver(ctx context.Context, batch []Message) error {
	subject := SubjectForTopic(d.topic)
	schemaID, err := d.schemaID(ctx, subject)
	if err != nil {
		return err
	}

	records := make([]kafka.Message, 0, len(batch))
	for _, msg := range batch {
		records = append(records, kafka.Message{
			Key:   []byte(msg.PartitionKey),
			Value: encodeWireFormat(schemaID, msg.Payload),
			Time:  msg.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(msg.EventType)},
				{Key: "event_id", Value: []byte(msg.EventID)},
				{Key: "schema_subject", Value: []byte(subject)},
			},
		})
	}
	return d.producer.WriteMessages(ctx, d.topic, records...)
}

func (d *Dispatcher) schemaID(ctx context.Context, subject string) (int, error) {
	if d.registry == nil {
		return 0, nil
	}
	if cached, ok := d.schemaIDCache.Load(subject); ok {
		return cached.(int), nil
	}
	id, err := d.registry.EnsureSchema(ctx, subject, rosterChangedSchema)
	if err != nil {
		return 0, fmt.Errorf("ensure schema %s: %w", subject, err)
	}
	d.schemaIDCache.Store(subject, id)
	return id, nil
}

// Message is a queued roster event awaiting delivery.
type Message struct {
	EventID      string
	EventType    string
	PartitionKey string
	Payload      json.RawMessage
	OccurredAt   time.Time
}

// encodeWireFormat applies Confluent framing for Schema Registry aware payloads.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
