package notify

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
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/google/uuid"
)

type recorder struct {
	mu   sync.Mutex
	msgs []json.RawMessage
	err  error
}

func (r *recorder) Send(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, v.(json.RawMessage))
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) eventTypes(t *testing.T) []types.EventType {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.EventType, 0, len(r.msgs))
	for _, m := range r.msgs {
		var env struct {
			Type types.EventType `json:"type"`
		}
		if err := json.Unmarshal(m, &env); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		out = append(out, env.Type)
	}
	return out
}

// slowHandle stalls every write like a client that stopped reading.
type slowHandle struct {
	recorder
	delay time.Duration
}

func (h *slowHandle) Send(v any) error {
	time.Sleep(h.delay)
	return h.recorder.Send(v)
}

type fakeRelay struct {
	published []Delivery
	err       error
}

func (f *fakeRelay) Publish(_ context.Context, d Delivery) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, d)
	return nil
}

func setup() (*Service, *ws.ConnectionHub) {
	log := logger.New(io.Discard, "test", logger.LevelError)
	hub := ws.NewConnHub(log)
	return New(hub, log), hub
}

func TestNotifyConnectedUser(t *testing.T) {
	s, hub := setup()
	passenger := uuid.New()
	rec := &recorder{}
	hub.Register(passenger, types.PassengerRole.String(), rec)

	s.Notify(context.Background(), passenger, models.RideUnavailable{RideID: uuid.New()})
	s.Wait()

	got := rec.eventTypes(t)
	if len(got) != 1 || got[0] != types.PushRideUnavailable {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestNotifyOfflineUserIsSilent(t *testing.T) {
	s, hub := setup()
	bystander := &recorder{}
	hub.Register(uuid.New(), types.DriverRole.String(), bystander)

	s.Notify(context.Background(), uuid.New(), models.RideUnavailable{RideID: uuid.New()})
	s.Wait()

	if n := len(bystander.eventTypes(t)); n != 0 {
		t.Fatalf("event leaked to another user: %d messages", n)
	}
	if hub.Len() != 1 {
		t.Fatal("registry must not change")
	}
}

func TestNotifySendFailureIsAbsorbed(t *testing.T) {
	s, hub := setup()
	user := uuid.New()
	hub.Register(user, types.DriverRole.String(), &recorder{err: errors.New("broken pipe")})

	// must not panic or block
	s.Notify(context.Background(), user, models.RideUnavailable{RideID: uuid.New()})
	s.Wait()
}

func TestBroadcastDriversSkipsExceptAndPassengers(t *testing.T) {
	s, hub := setup()
	winner := uuid.New()
	winnerRec, otherRec, passengerRec := &recorder{}, &recorder{}, &recorder{}
	hub.Register(winner, types.DriverRole.String(), winnerRec)
	hub.Register(uuid.New(), types.DriverRole.String(), otherRec)
	hub.Register(uuid.New(), types.PassengerRole.String(), passengerRec)

	s.BroadcastDrivers(context.Background(), models.RideUnavailable{RideID: uuid.New()}, winner)
	s.Wait()

	if n := len(winnerRec.eventTypes(t)); n != 0 {
		t.Fatalf("excluded driver got %d messages", n)
	}
	if n := len(otherRec.eventTypes(t)); n != 1 {
		t.Fatalf("other driver got %d messages", n)
	}
	if n := len(passengerRec.eventTypes(t)); n != 0 {
		t.Fatalf("passenger got %d messages", n)
	}
}

func TestRelayFallsBackToLocalDelivery(t *testing.T) {
	s, hub := setup()
	user := uuid.New()
	rec := &recorder{}
	hub.Register(user, types.PassengerRole.String(), rec)

	relay := &fakeRelay{}
	s.WithRelay(relay)
	s.Notify(context.Background(), user, models.RideUnavailable{RideID: uuid.New()})
	s.Wait()

	if len(relay.published) != 1 || len(rec.eventTypes(t)) != 0 {
		t.Fatal("healthy relay should take the delivery")
	}

	relay.err = errors.New("channel closed")
	s.Notify(context.Background(), user, models.RideUnavailable{RideID: uuid.New()})
	s.Wait()

	if len(rec.eventTypes(t)) != 1 {
		t.Fatal("failed relay should fall back to local delivery")
	}
}

func TestSlowDriversDoNotBlockBroadcast(t *testing.T) {
	s, hub := setup()
	slow := make([]*slowHandle, 4)
	for i := range slow {
		slow[i] = &slowHandle{delay: 300 * time.Millisecond}
		hub.Register(uuid.New(), types.DriverRole.String(), slow[i])
	}

	start := time.Now()
	s.BroadcastDrivers(context.Background(), models.RideUnavailable{RideID: uuid.New()})
	if took := time.Since(start); took > 100*time.Millisecond {
		t.Fatalf("broadcast waited on sockets: %v", took)
	}

	s.Wait()
	for i, h := range slow {
		if n := len(h.eventTypes(t)); n != 1 {
			t.Errorf("driver %d got %d messages", i, n)
		}
	}
	// the writes run side by side, not one after another
	if took := time.Since(start); took > 900*time.Millisecond {
		t.Errorf("deliveries were serialized across users: %v", took)
	}
}

func TestEventsToOneUserKeepOrder(t *testing.T) {
	s, hub := setup()
	user := uuid.New()
	h := &slowHandle{delay: 10 * time.Millisecond}
	hub.Register(user, types.PassengerRole.String(), h)

	ctx := context.Background()
	s.Notify(ctx, user, models.RideAccepted{Ride: &models.Ride{ID: uuid.New()}})
	s.Notify(ctx, user, models.RideStatusChanged{Ride: &models.Ride{ID: uuid.New()}})
	s.Notify(ctx, user, models.RideCancelled{Ride: &models.Ride{ID: uuid.New()}})
	s.Wait()

	got := h.eventTypes(t)
	want := []types.EventType{types.PushRideAccepted, types.PushRideStatusChanged, types.PushRideCancelled}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
