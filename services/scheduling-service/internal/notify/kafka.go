package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/agenda/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes in-app events to a topic for other dashboard consumers.
type KafkaNotifier struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaNotifier(brokers string, topic string, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: kafkax.NewWriter(brokers, topic), logger: logger}
}

func (k *KafkaNotifier) Emit(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		k.logger.Error("in-app event encode failed", "err", err, "type", ev.Type)
		return
	}
	eventID := uuid.NewString()
	headers := []kafka.Header{
		{Key: kafkax.HeaderEventID, Value: []byte(eventID)},
		{Key: kafkax.HeaderEventType, Value: []byte(ev.Type)},
	}
	msg := kafka.Message{
		Key:     []byte(eventID),
		Value:   payload,
		Headers: kafkax.InjectTraceHeaders(ctx, headers),
		Time:    ev.OccurredAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.logger.Warn("in-app event publish failed", "err", err, "type", ev.Type)
	}
}

func (k *KafkaNotifier) Close() error {
	if c, ok := k.writer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
