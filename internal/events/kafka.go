package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultPublishTimeout bounds a single Publish call when KafkaConfig.Timeout is unset.
const DefaultPublishTimeout = 2 * time.Second

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	TopicByType map[string]string
	Timeout     time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON envelopes keyed by the event key.
type KafkaPublisher struct {
	writer      messageWriter
	topic       string
	topicByType map[string]string
	timeout     time.Duration
	now         func() time.Time
}

type envelope struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data"`
}

// NewKafkaPublisher constructs a publisher using a hash balanced kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}

	timeout := publishTimeout(cfg.Timeout)
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		WriteTimeout: timeout,
	}
	return newKafkaPublisher(writer, cfg), nil
}

func newKafkaPublisher(writer messageWriter, cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer:      writer,
		topic:       strings.TrimSpace(cfg.Topic),
		topicByType: cfg.TopicByType,
		timeout:     publishTimeout(cfg.Timeout),
		now:         time.Now,
	}
}

func publishTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPublishTimeout
	}
	return d
}

func (p *KafkaPublisher) topicFor(eventType string) string {
	if mapped, ok := p.topicByType[eventType]; ok && mapped != "" {
		return mapped
	}
	if p.topic != "" {
		return p.topic
	}
	return eventType
}

// Publish serialises event and writes it to its topic. The write outlives
// cancellation of ctx but never runs longer than the configured timeout.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Type) == "" {
		return errors.New("kafka publisher: event type is required")
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = p.now()
	}
	occurred = occurred.UTC()

	value, err := json.Marshal(envelope{Type: event.Type, OccurredAt: occurred, Data: event.Payload})
	if err != nil {
		return fmt.Errorf("kafka publisher: encode %s: %w", event.Type, err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: p.topicFor(event.Type),
		Key:   []byte(event.Key),
		Value: value,
		Time:  occurred,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka publisher: write %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
