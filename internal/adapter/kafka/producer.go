// Package kafka streams committed ride lifecycle entries to a topic for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/segmentio/kafka-go"
)

const (
	serviceName  = "dispatch"
	writeTimeout = 2 * time.Second
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventProducer publishes every entry keyed by ride id, so one ride's entries keep their order.
type EventProducer struct {
	writer MessageWriter
	topic  string
}

func NewEventProducer(brokers []string, topic string) *EventProducer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &EventProducer{writer: w, topic: topic}
}

func NewEventProducerWithWriter(w MessageWriter, topic string) *EventProducer {
	return &EventProducer{writer: w, topic: topic}
}

func (p *EventProducer) Publish(ctx context.Context, entry models.RideLogEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ride event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.RideID.String()),
		Value: value,
		Time:  entry.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(entry.Type)},
		},
	})
	metrics.RecordPublish(serviceName, "kafka", p.topic, err)
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	return nil
}

func (p *EventProducer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
