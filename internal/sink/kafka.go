package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/kalambet/newsdesk/internal/storage"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes documents to a topic, keyed by doc_id so updates of one
// document land on the same partition.
type Kafka struct {
	w     messageWriter
	topic string
}

// NewKafka creates a publisher for topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		MaxAttempts: 3,
	})
	return &Kafka{w: w, topic: topic}
}

func (k *Kafka) Publish(ctx context.Context, doc storage.Document) error {
	payload, err := json.Marshal(NewEvent(doc))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(doc.DocID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "category", Value: []byte(doc.Category)},
			{Key: "source", Value: []byte(doc.Source)},
		},
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
