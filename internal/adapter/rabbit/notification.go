package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const resubscribeDelay = 2 * time.Second

// NotificationRelay fans deliveries out to every dispatch instance, so a user is
// reached whichever instance holds their connection.
type NotificationRelay struct {
	broker Broker
	log    logger.Logger
}

func NewNotificationRelay(broker Broker, log logger.Logger) (*NotificationRelay, error) {
	if err := broker.DeclareExchange(ExchangeNotifications, amqp.ExchangeFanout); err != nil {
		return nil, err
	}
	return &NotificationRelay{broker: broker, log: log}, nil
}

func (r *NotificationRelay) Publish(ctx context.Context, d notify.Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	err = r.broker.Publish(ctx, ExchangeNotifications, "", amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: wrap.GetRequestID(ctx),
		Type:          string(d.Event),
		Timestamp:     time.Now(),
		Expiration:    "30000", // уведомления не копим
		Body:          body,
	})
	metrics.RecordPublish(serviceName, "rabbitmq", ExchangeNotifications, err)
	return err
}

type DeliverFunc func(ctx context.Context, d notify.Delivery)

// Consume feeds relayed deliveries to fn until ctx is done, resubscribing when the
// channel drops.
func (r *NotificationRelay) Consume(ctx context.Context, fn DeliverFunc) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_notifications")

	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := r.broker.Subscribe(ctx, ExchangeNotifications, "")
		if err != nil {
			r.log.Error(ctx, "subscribe failed", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(resubscribeDelay):
			}
			continue
		}

		r.log.Info(ctx, "start consuming notifications", "exchange", ExchangeNotifications)
		if done := r.drain(ctx, msgs, fn); done {
			return nil
		}
		r.log.Warn(ctx, "notification channel closed, resubscribing")
	}
}

// drain reports true when ctx ended, false when msgs was closed.
func (r *NotificationRelay) drain(ctx context.Context, msgs <-chan amqp.Delivery, fn DeliverFunc) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			r.handle(ctx, msg, fn)
		}
	}
}

func (r *NotificationRelay) handle(ctx context.Context, msg amqp.Delivery, fn DeliverFunc) {
	var d notify.Delivery
	err := json.Unmarshal(msg.Body, &d)
	metrics.RecordConsume(serviceName, "rabbitmq", ExchangeNotifications, err)
	if err != nil {
		r.log.Error(ctx, "decode failed", err)
		return
	}

	fn(wrap.WithRequestID(ctx, msg.CorrelationId), d)
}
