package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{" ", ""}})
	require.Error(t, err)

	pub, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "lms.events"})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisherWritesEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, KafkaConfig{Topic: "lms.identity"})
	occurred := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), Event{
		Type:       TypeUserRegistered,
		Key:        "user-1",
		Payload:    map[string]any{"email": "a@b.com", "role": "Student"},
		OccurredAt: occurred,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	require.Equal(t, "lms.identity", msg.Topic)
	require.Equal(t, "user-1", string(msg.Key))
	require.Equal(t, occurred, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, TypeUserRegistered, decoded["type"])
	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Student", data["role"])
}

func TestKafkaPublisherTopicResolution(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, KafkaConfig{
		TopicByType: map[string]string{TypeCoursePublished: "lms.catalogue"},
	})

	require.NoError(t, pub.Publish(context.Background(), Event{Type: TypeCoursePublished, Key: "1"}))
	require.NoError(t, pub.Publish(context.Background(), Event{Type: TypeInstructorRequestDecided, Key: "2"}))

	require.Equal(t, "lms.catalogue", writer.messages[0].Topic)
	require.Equal(t, TypeInstructorRequestDecided, writer.messages[1].Topic)
	require.False(t, writer.messages[1].Time.IsZero())
}

func TestKafkaPublisherErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unavailable")}
	pub := newKafkaPublisher(writer, KafkaConfig{Topic: "t"})

	require.Error(t, pub.Publish(context.Background(), Event{}))

	err := pub.Publish(context.Background(), Event{Type: TypeUserRegistered})
	require.ErrorContains(t, err, "broker unavailable")

	require.NoError(t, pub.Close())
	require.True(t, writer.closed)
}

// blockingWriter stalls until the write context ends, like a broker that never acks.
type blockingWriter struct {
	fakeWriter
}

func (w *blockingWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestKafkaPublisherBoundsSlowBroker(t *testing.T) {
	pub := newKafkaPublisher(&blockingWriter{}, KafkaConfig{Topic: "t", Timeout: 50 * time.Millisecond})

	start := time.Now()
	err := pub.Publish(context.Background(), Event{Type: TypeUserRegistered, Key: "user-1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
}

func TestKafkaPublisherIgnoresCallerCancellation(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, KafkaConfig{Topic: "t"})
	require.Equal(t, DefaultPublishTimeout, pub.timeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Publish(ctx, Event{Type: TypeCoursePublished, Key: "1"}))
	require.Len(t, writer.messages, 1)
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	var pub Publisher = rec
	require.NoError(t, pub.Publish(context.Background(), Event{Type: TypeUserRegistered}))
	require.NoError(t, pub.Publish(context.Background(), Event{Type: TypeCoursePublished}))
	require.Len(t, rec.OfType(TypeCoursePublished), 1)

	rec.Err = errors.New("boom")
	require.Error(t, pub.Publish(context.Background(), Event{Type: TypeUserRegistered}))
	require.Len(t, rec.Events(), 2)

	require.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}
