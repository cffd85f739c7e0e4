package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RideStatusPublisher announces every committed lifecycle entry on the ride topic
// exchange with the key 'ride.status.{status}'.
type RideStatusPublisher struct {
	broker Broker
}

func NewRideStatusPublisher(broker Broker) (*RideStatusPublisher, error) {
	if err := broker.DeclareExchange(ExchangeRideTopic, amqp.ExchangeTopic); err != nil {
		return nil, err
	}
	return &RideStatusPublisher{broker: broker}, nil
}

func (p *RideStatusPublisher) Publish(ctx context.Context, entry models.RideLogEntry) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_ride_status")

	body, err := json.Marshal(entry)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	// example: ride.status.ACCEPTED
	key := fmt.Sprintf("ride.status.%s", entry.ToStatus)

	err = p.broker.Publish(ctx, ExchangeRideTopic, key, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: wrap.GetRequestID(ctx),
		MessageId:     entry.ID.String(),
		Type:          string(entry.Type),
		Timestamp:     entry.OccurredAt,
		Body:          body,
	})
	metrics.RecordPublish(serviceName, "rabbitmq", ExchangeRideTopic, err)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}
