package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/enrollment-api/model"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaNotifier
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes enrollment events to a Kafka topic
type KafkaNotifier struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaNotifier creates a notifier writing to topic on brokers
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return NewKafkaNotifierWithWriter(writer)
}

// NewKafkaNotifierWithWriter wraps an existing writer
func NewKafkaNotifierWithWriter(writer MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{
		writer:  writer,
		timeout: 10 * time.Second,
	}
}

// Send publishes the event keyed by enrollment id (or email when no record exists)
func (k *KafkaNotifier) Send(ctx context.Context, event model.EnrollmentEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		log.Errorf("kafka notify: failed to marshal event: %v", err)
		return
	}

	key := event.Email
	if event.EnrollmentID != nil {
		key = strconv.FormatUint(uint64(*event.EnrollmentID), 10)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Event)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		log.Errorf("kafka notify failed for %s: %v", key, err)
	}
}

// Close flushes and closes the writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
