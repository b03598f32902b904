package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cineseat/internal/ledger"
	"cineseat/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Event types published on the booking topic.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventSeatsReserved    = "seats.reserved"
)

// BookingEvent is the wire shape of a booking lifecycle event. Downstream
// collaborators (payment reconciliation, email) consume it; none of them
// live in this service.
type BookingEvent struct {
	EventID      string             `json:"event_id"`
	Type         string             `json:"type"`
	BookingID    string             `json:"booking_id,omitempty"`
	BookingRef   string             `json:"booking_ref,omitempty"`
	Showtime     ledger.ShowtimeKey `json:"showtime"`
	Seats        []string           `json:"seats"`
	TotalAmount  float64            `json:"total_amount,omitempty"`
	RefundAmount float64            `json:"refund_amount,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

// EventPublisher publishes booking lifecycle events. Publishing is best
// effort from the caller's point of view: a failed publish must never fail
// the booking path.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// ProducerConfig contains configuration for the Kafka event producer.
type ProducerConfig struct {
	Brokers   []string
	Topic     string
	RetryMax  int
	TimeoutMs int
}

// DefaultProducerConfig returns a default producer configuration.
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:   []string{"localhost:9092"},
		Topic:     "booking-events",
		RetryMax:  3,
		TimeoutMs: 10000,
	}
}

// kafkaPublisher publishes booking events through a sarama sync producer.
type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaPublisher creates a Kafka-backed event publisher. Writes are
// idempotent and partitioned by showtime so per-showtime event order is
// preserved.
func NewKafkaPublisher(config *ProducerConfig, log *logger.Logger) (EventPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keyed by showtime keeps one showtime on one partition.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("Kafka booking event producer created", "topic", config.Topic)
	return &kafkaPublisher{producer: producer, topic: config.Topic, log: log}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event BookingEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.Showtime.String()),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.OccurredAt,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}

	p.log.Debug("booking event published",
		"type", event.Type,
		"booking_ref", event.BookingRef,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// noopPublisher is used when Kafka is disabled. Events are logged and
// dropped.
type noopPublisher struct {
	log *logger.Logger
}

// NewNoopPublisher returns a publisher that records events in the log only.
func NewNoopPublisher(log *logger.Logger) EventPublisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) Publish(ctx context.Context, event BookingEvent) error {
	p.log.Debug("booking event (kafka disabled)", "type", event.Type, "booking_ref", event.BookingRef)
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
