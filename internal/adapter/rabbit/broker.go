// Package rabbit connects ride lifecycle events and user notifications to RabbitMQ exchanges.
package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	serviceName = "dispatch"

	ExchangeRideTopic     = "ride_topic"
	ExchangeNotifications = "ride_notifications"
)

// Broker is implemented by *rabbit.RabbitMQ.
type Broker interface {
	DeclareExchange(name, kind string) error
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	Subscribe(ctx context.Context, exchange, key string) (<-chan amqp.Delivery, error)
}
