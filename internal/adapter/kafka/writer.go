package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pop-status-service/internal/config"
	"github.com/couchcryptid/pop-status-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const eventTypeOverrideChanged = "override_changed"

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes override change events to a Kafka topic.
// It implements statuspage.ChangePublisher.
type Writer struct {
	writer messageWriter
	key    string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured event topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, key: cfg.OverrideKey, logger: logger}
}

// PublishOverrideChange writes one change event. All events share the override
// key so they land on one partition in mutation order.
func (w *Writer) PublishOverrideChange(ctx context.Context, change domain.OverrideChange) error {
	msg, err := serializeToMessage(w.key, change)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write override change %s: %w", change.ID, err)
	}
	w.logger.Debug("override change published", "id", change.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an OverrideChange into a Kafka message.
func serializeToMessage(key string, change domain.OverrideChange) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize override change: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventTypeOverrideChanged)},
			{Key: "changed_at", Value: []byte(change.ChangedAt.Format(time.RFC3339))},
		},
	}, nil
}
