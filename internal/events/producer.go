// internal/events/producer.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"imgpress/internal/models"
)

// KafkaPublisher writes one message per committed ingest to a Kafka topic,
// keyed by record id. Downstream consumers (thumbnailers, audit) pick it up
// from there; the upload path itself never depends on delivery.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers: []string{broker},
			Topic:   topic,
		}),
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event models.IngestEvent) error {
	const op = "events.Publish"

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
