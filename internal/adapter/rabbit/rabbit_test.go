package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeBroker struct {
	mu        sync.Mutex
	exchanges map[string]string
	sent      []published
	deliver   chan amqp.Delivery
	err       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{exchanges: make(map[string]string), deliver: make(chan amqp.Delivery, 8)}
}

func (f *fakeBroker) DeclareExchange(name, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name] = kind
	return nil
}

func (f *fakeBroker) Publish(_ context.Context, exchange, key string, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string, string) (<-chan amqp.Delivery, error) {
	return f.deliver, nil
}

func TestRideStatusRoutingKey(t *testing.T) {
	b := newFakeBroker()
	p, err := NewRideStatusPublisher(b)
	if err != nil {
		t.Fatal(err)
	}
	if b.exchanges[ExchangeRideTopic] != amqp.ExchangeTopic {
		t.Fatal("topic exchange not declared")
	}

	entry := models.RideLogEntry{
		ID: uuid.New(), RideID: uuid.New(), Type: types.EventRideStarted,
		FromStatus: types.StatusArrived, ToStatus: types.StatusInProgress,
	}
	if err := p.Publish(context.Background(), entry); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(b.sent) != 1 || b.sent[0].key != "ride.status.IN_PROGRESS" {
		t.Fatalf("unexpected publish: %+v", b.sent)
	}
	if b.sent[0].msg.MessageId != entry.ID.String() {
		t.Fatal("message id must be the entry id")
	}
}

func TestRideStatusPublishError(t *testing.T) {
	b := newFakeBroker()
	b.err = errors.New("channel closed")
	p, _ := NewRideStatusPublisher(b)

	if err := p.Publish(context.Background(), models.RideLogEntry{RideID: uuid.New()}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotificationRelayRoundTrip(t *testing.T) {
	b := newFakeBroker()
	log := logger.New(io.Discard, "test", logger.LevelError)
	relay, err := NewNotificationRelay(b, log)
	if err != nil {
		t.Fatal(err)
	}
	if b.exchanges[ExchangeNotifications] != amqp.ExchangeFanout {
		t.Fatal("fanout exchange not declared")
	}

	user := uuid.New()
	d := notify.Delivery{
		UserID:  &user,
		Event:   types.PushRideUnavailable,
		Message: json.RawMessage(`{"type":"ride_unavailable","data":{}}`),
	}
	if err := relay.Publish(context.Background(), d); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// the fake loops the published body back to the consumer
	b.deliver <- amqp.Delivery{Body: b.sent[0].msg.Body}
	b.deliver <- amqp.Delivery{Body: []byte("not json")}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan notify.Delivery, 2)
	done := make(chan error, 1)
	go func() {
		done <- relay.Consume(ctx, func(_ context.Context, d notify.Delivery) { got <- d })
	}()

	select {
	case r := <-got:
		if r.UserID == nil || *r.UserID != user || r.Event != types.PushRideUnavailable {
			t.Fatalf("unexpected delivery: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("delivery not consumed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("consume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	if len(got) != 0 {
		t.Fatal("malformed message must be dropped")
	}
}
