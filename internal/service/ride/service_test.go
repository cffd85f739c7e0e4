package ride

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/google/uuid"
)

type sent struct {
	to    *uuid.UUID
	event models.Event
}

type fakeNotifier struct {
	mu         sync.Mutex
	direct     []sent
	broadcasts []sent
}

func (f *fakeNotifier) Notify(_ context.Context, userID uuid.UUID, event models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct = append(f.direct, sent{to: &userID, event: event})
}

func (f *fakeNotifier) BroadcastDrivers(_ context.Context, event models.Event, _ ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, sent{event: event})
}

func (f *fakeNotifier) directTo(userID uuid.UUID) []types.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.EventType
	for _, s := range f.direct {
		if *s.to == userID {
			out = append(out, s.event.EventType())
		}
	}
	return out
}

type fakePublisher struct {
	mu      sync.Mutex
	entries []models.RideLogEntry
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, e models.RideLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return f.err
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *fakeNotifier
	pub      *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	n := &fakeNotifier{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := New(Deps{
		Store:      store,
		Finder:     store,
		Locations:  store,
		Events:     store,
		Publishers: []EventPublisher{pub},
		Notifier:   n,
		Pricing:    ridecalc.New(ridecalc.DefaultTariff),
	}, Config{PendingTTL: 15 * time.Minute}, logger.New(io.Discard, "test", logger.LevelError))
	return &fixture{svc: svc, store: store, notifier: n, pub: pub}
}

var almaty = models.Location{Latitude: 43.238949, Longitude: 76.889709, Address: "Abay ave"}

func (f *fixture) request(t *testing.T, passenger uuid.UUID) *models.Ride {
	t.Helper()
	ride, err := f.svc.Request(context.Background(), RequestInput{
		PassengerID: passenger,
		Origin:      almaty,
		Destination: models.Location{Latitude: 43.222015, Longitude: 76.851248, Address: "Dostyk"},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return ride
}

func (f *fixture) move(t *testing.T, ride *models.Ride, actor uuid.UUID, role types.UserRole, to types.RideStatus) *models.Ride {
	t.Helper()
	got, err := f.svc.Transition(context.Background(), TransitionInput{RideID: ride.ID, ActorID: actor, ActorRole: role, Target: to})
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return got
}

func TestRequestCreatesPendingRide(t *testing.T) {
	f := newFixture(t)
	passenger := uuid.New()

	ride := f.request(t, passenger)
	if ride.Status != types.StatusPending || ride.DriverID != nil {
		t.Fatalf("unexpected ride: %+v", ride)
	}
	if ride.Price <= 0 || ride.Distance <= 0 || ride.PaymentMethod != types.PaymentCash {
		t.Fatalf("pricing not applied: %+v", ride)
	}

	events := f.store.Events(ride.ID)
	if len(events) != 1 || events[0].Type != types.EventRideRequested {
		t.Fatalf("unexpected log: %v", events)
	}
	if len(f.pub.entries) != 1 {
		t.Fatal("publisher failure must not fail the request")
	}
}

func TestRequestKeepsExplicitPrice(t *testing.T) {
	f := newFixture(t)
	price := 1234.567
	ride, err := f.svc.Request(context.Background(), RequestInput{
		PassengerID: uuid.New(),
		Origin:      almaty,
		Destination: almaty,
		Price:       &price,
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if ride.Price != 1234.57 {
		t.Fatalf("price = %v", ride.Price)
	}
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)
	negative := -1.0

	cases := map[string]RequestInput{
		"bad latitude":   {PassengerID: uuid.New(), Origin: models.Location{Latitude: 91}, Destination: almaty},
		"negative price": {PassengerID: uuid.New(), Origin: almaty, Destination: almaty, Price: &negative},
		"no passenger":   {Origin: almaty, Destination: almaty},
		"bad payment":    {PassengerID: uuid.New(), Origin: almaty, Destination: almaty, PaymentMethod: "BARTER"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Request(context.Background(), in)
			if !errors.Is(err, types.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRequestRejectsSecondActiveRide(t *testing.T) {
	f := newFixture(t)
	passenger := uuid.New()
	f.request(t, passenger)

	_, err := f.svc.Request(context.Background(), RequestInput{PassengerID: passenger, Origin: almaty, Destination: almaty})
	if !errors.Is(err, types.ErrActiveRideExist) {
		t.Fatalf("expected ErrActiveRideExist, got %v", err)
	}
}

func TestConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ride := f.request(t, uuid.New())

	const drivers = 32
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		mu      sync.Mutex
		winners []uuid.UUID
		losers  int
	)
	for i := 0; i < drivers; i++ {
		driver := uuid.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Claim(context.Background(), ride.ID, driver)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, driver)
			case types.IsClaimRejection(err):
				losers++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || losers != drivers-1 {
		t.Fatalf("winners=%d losers=%d", len(winners), losers)
	}

	stored, _ := f.store.Get(context.Background(), ride.ID)
	if stored.Status != types.StatusAccepted || *stored.DriverID != winners[0] {
		t.Fatalf("stored ride does not match winner: %+v", stored)
	}
	if got := f.notifier.directTo(ride.PassengerID); len(got) != 1 || got[0] != types.PushRideAccepted {
		t.Fatalf("passenger notifications: %v", got)
	}

	matched := 0
	for _, e := range f.store.Events(ride.ID) {
		if e.Type == types.EventDriverMatched {
			matched++
		}
	}
	if matched != 1 {
		t.Fatalf("expected one DRIVER_MATCHED entry, got %d", matched)
	}
}

func TestClaimRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ride := f.request(t, uuid.New())
	winner := uuid.New()

	if _, err := f.svc.Claim(ctx, ride.ID, winner); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// повторный claim победителя идемпотентен
	again, err := f.svc.Claim(ctx, ride.ID, winner)
	if err != nil || *again.DriverID != winner {
		t.Fatalf("re-claim by winner: %v", err)
	}

	if _, err := f.svc.Claim(ctx, ride.ID, uuid.New()); !errors.Is(err, types.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	cancelled := f.request(t, uuid.New())
	if _, err := f.svc.Cancel(ctx, cancelled.ID, cancelled.PassengerID, types.PassengerRole, "changed plans"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Claim(ctx, cancelled.ID, uuid.New()); !errors.Is(err, types.ErrNoLongerAvailable) {
		t.Fatalf("expected ErrNoLongerAvailable, got %v", err)
	}

	if _, err := f.svc.Claim(ctx, uuid.New(), uuid.New()); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	passenger, driver := uuid.New(), uuid.New()
	ride := f.request(t, passenger)

	f.move(t, ride, driver, types.DriverRole, types.StatusAccepted)
	f.move(t, ride, driver, types.DriverRole, types.StatusArrived)
	started := f.move(t, ride, driver, types.DriverRole, types.StatusInProgress)
	if started.StartTime == nil {
		t.Fatal("start time not set")
	}
	done := f.move(t, ride, driver, types.DriverRole, types.StatusCompleted)
	if done.EndTime == nil {
		t.Fatal("end time not set")
	}

	want := []types.RideEvent{
		types.EventRideRequested, types.EventDriverMatched, types.EventDriverArrived,
		types.EventRideStarted, types.EventRideCompleted,
	}
	events := f.store.Events(ride.ID)
	if len(events) != len(want) {
		t.Fatalf("log has %d entries, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Fatalf("entry %d = %s, want %s", i, e.Type, want[i])
		}
	}

	// passenger hears about accept, arrival, start, completion
	if got := f.notifier.directTo(passenger); len(got) != 4 {
		t.Fatalf("passenger notifications: %v", got)
	}

	active, err := f.svc.GetActive(context.Background(), models.Identity{UserID: passenger, Role: types.PassengerRole})
	if err != nil || active != nil {
		t.Fatalf("completed ride must not be active: %v %v", active, err)
	}
}

func TestTransitionChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	passenger, driver := uuid.New(), uuid.New()
	ride := f.request(t, passenger)
	f.move(t, ride, driver, types.DriverRole, types.StatusAccepted)

	cases := []struct {
		name   string
		actor  uuid.UUID
		role   types.UserRole
		target types.RideStatus
		want   error
	}{
		{"passenger cannot start", passenger, types.PassengerRole, types.StatusInProgress, types.ErrIllegalTransition},
		{"skip arrived", driver, types.DriverRole, types.StatusInProgress, types.ErrIllegalTransition},
		{"same status", driver, types.DriverRole, types.StatusAccepted, types.ErrIllegalTransition},
		{"other driver", uuid.New(), types.DriverRole, types.StatusArrived, types.ErrUnauthorized},
		{"unknown status", driver, types.DriverRole, "FLYING", types.ErrInvalidInput},
		{"cancel without reason", passenger, types.PassengerRole, types.StatusCancelled, types.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Transition(ctx, TransitionInput{RideID: ride.ID, ActorID: tc.actor, ActorRole: tc.role, Target: tc.target})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	stored, _ := f.store.Get(ctx, ride.ID)
	if stored.Status != types.StatusAccepted {
		t.Fatalf("rejected transitions changed the ride: %s", stored.Status)
	}
}

func TestCancelNotifiesCounterparty(t *testing.T) {
	f := newFixture(t)
	passenger, driver := uuid.New(), uuid.New()
	ride := f.request(t, passenger)
	f.move(t, ride, driver, types.DriverRole, types.StatusAccepted)

	got, err := f.svc.Cancel(context.Background(), ride.ID, passenger, types.PassengerRole, "  found another  ")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.CancelledBy != types.CancelledByPassenger || got.CancelReason != "found another" {
		t.Fatalf("unexpected cancellation: %+v", got)
	}
	if n := f.notifier.directTo(driver); len(n) != 1 || n[0] != types.PushRideCancelled {
		t.Fatalf("driver notifications: %v", n)
	}

	_, err = f.svc.Cancel(context.Background(), ride.ID, passenger, types.PassengerRole, "again")
	if !errors.Is(err, types.ErrIllegalTransition) {
		t.Fatalf("cancel of terminal ride: %v", err)
	}
}

func TestCancelPendingHasNoCounterparty(t *testing.T) {
	f := newFixture(t)
	ride := f.request(t, uuid.New())

	if _, err := f.svc.Cancel(context.Background(), ride.ID, ride.PassengerID, types.PassengerRole, "late"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(f.notifier.direct) != 0 {
		t.Fatalf("nobody to notify, got %v", f.notifier.direct)
	}
	if len(f.notifier.broadcasts) != 1 {
		t.Fatal("drivers must learn the ride is gone")
	}
}

func TestListNearby(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := uuid.New()
	ride := f.request(t, uuid.New())

	if _, err := f.svc.ListNearby(ctx, driver, nil); !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("no location yet: %v", err)
	}

	if err := f.svc.UpdateDriverLocation(ctx, driver, models.Location{Latitude: 43.24, Longitude: 76.89}); err != nil {
		t.Fatalf("location: %v", err)
	}
	got, err := f.svc.ListNearby(ctx, driver, nil)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != ride.ID || got[0].DistanceToOrigin == nil {
		t.Fatalf("unexpected candidates: %v", got)
	}

	if _, err := f.svc.FindNearby(ctx, almaty, 0, 5); !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("zero radius: %v", err)
	}
}

func TestGetStanding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	passenger := uuid.New()
	ride := f.request(t, passenger)

	if _, err := f.svc.Get(ctx, ride.ID, models.Identity{UserID: passenger, Role: types.PassengerRole}); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := f.svc.Get(ctx, ride.ID, models.Identity{UserID: uuid.New(), Role: types.DriverRole}); err != nil {
		t.Fatalf("pending ride is readable by drivers: %v", err)
	}
	_, err := f.svc.Get(ctx, ride.ID, models.Identity{UserID: uuid.New(), Role: types.PassengerRole})
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("stranger read: %v", err)
	}
}

func TestRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	passenger, driver := uuid.New(), uuid.New()
	ride := f.request(t, passenger)

	_, err := f.svc.Rate(ctx, RateInput{RideID: ride.ID, ActorID: passenger, ActorRole: types.PassengerRole, Score: 5})
	if !errors.Is(err, types.ErrIllegalTransition) {
		t.Fatalf("rating before completion: %v", err)
	}

	for _, st := range []types.RideStatus{types.StatusAccepted, types.StatusArrived, types.StatusInProgress, types.StatusCompleted} {
		f.move(t, ride, driver, types.DriverRole, st)
	}

	if _, err := f.svc.Rate(ctx, RateInput{RideID: ride.ID, ActorID: passenger, ActorRole: types.PassengerRole, Score: 6}); !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("score 6: %v", err)
	}
	got, err := f.svc.Rate(ctx, RateInput{RideID: ride.ID, ActorID: passenger, ActorRole: types.PassengerRole, Score: 5, Comment: "great"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got.Rating == nil || *got.Rating.ByPassenger != 5 {
		t.Fatalf("rating not stored: %+v", got.Rating)
	}
	if _, err := f.svc.Rate(ctx, RateInput{RideID: ride.ID, ActorID: passenger, ActorRole: types.PassengerRole, Score: 4}); !errors.Is(err, types.ErrAlreadyRated) {
		t.Fatalf("second rating: %v", err)
	}

	// каждая сторона хранит свой комментарий
	got, err = f.svc.Rate(ctx, RateInput{RideID: ride.ID, ActorID: driver, ActorRole: types.DriverRole, Score: 4, Comment: "late to pickup"})
	if err != nil {
		t.Fatalf("driver rate: %v", err)
	}
	if got.Rating.PassengerComment != "great" || got.Rating.DriverComment != "late to pickup" {
		t.Fatalf("comments mixed up: %+v", got.Rating)
	}
	if *got.Rating.ByPassenger != 5 || *got.Rating.ByDriver != 4 {
		t.Fatalf("scores mixed up: %+v", got.Rating)
	}
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.request(t, uuid.New())
	claimed := f.request(t, uuid.New())
	f.move(t, claimed, uuid.New(), types.DriverRole, types.StatusAccepted)

	f.svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	n, err := f.svc.ExpirePending(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d rides", n)
	}

	got, _ := f.store.Get(ctx, stale.ID)
	if got.Status != types.StatusCancelled || got.CancelledBy != types.CancelledBySystem {
		t.Fatalf("stale ride not cancelled by system: %+v", got)
	}
	if n := f.notifier.directTo(stale.PassengerID); len(n) != 1 || n[0] != types.PushRideCancelled {
		t.Fatalf("passenger notifications: %v", n)
	}
}

// transitionTable is the role table written out independently of legalTransitions.
var transitionTable = map[types.RideStatus]map[types.UserRole][]types.RideStatus{
	types.StatusPending:    {types.DriverRole: {types.StatusAccepted}, types.PassengerRole: {types.StatusCancelled}},
	types.StatusAccepted:   {types.DriverRole: {types.StatusArrived, types.StatusCancelled}, types.PassengerRole: {types.StatusCancelled}},
	types.StatusArrived:    {types.DriverRole: {types.StatusInProgress, types.StatusCancelled}, types.PassengerRole: {types.StatusCancelled}},
	types.StatusInProgress: {types.DriverRole: {types.StatusCompleted, types.StatusCancelled}},
}

func inTable(from types.RideStatus, role types.UserRole, to types.RideStatus) bool {
	for _, next := range transitionTable[from][role] {
		if next == to {
			return true
		}
	}
	return false
}

// seed stores a ride already in status, with a driver once it is past PENDING.
func (f *fixture) seed(t *testing.T, status types.RideStatus) *models.Ride {
	t.Helper()
	now := time.Now().UTC()
	ride := &models.Ride{
		ID:            uuid.New(),
		PassengerID:   uuid.New(),
		Origin:        almaty,
		Destination:   models.Location{Latitude: 43.222015, Longitude: 76.851248},
		Status:        status,
		PaymentMethod: types.PaymentCash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status != types.StatusPending {
		driver := uuid.New()
		ride.DriverID = &driver
		ride.AcceptedAt = &now
	}
	if err := f.store.Create(context.Background(), ride); err != nil {
		t.Fatalf("seed %s: %v", status, err)
	}
	return ride
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, from := range types.RideStatuses {
		for _, role := range []types.UserRole{types.PassengerRole, types.DriverRole} {
			for _, to := range types.RideStatuses {
				t.Run(fmt.Sprintf("%s_%s_%s", from, role, to), func(t *testing.T) {
					ride := f.seed(t, from)
					actor := ride.PassengerID
					if role == types.DriverRole {
						actor = uuid.New()
						if ride.DriverID != nil {
							actor = *ride.DriverID
						}
					}

					got, err := f.svc.Transition(ctx, TransitionInput{
						RideID: ride.ID, ActorID: actor, ActorRole: role, Target: to, Reason: "plans changed",
					})

					if inTable(from, role, to) {
						if err != nil {
							t.Fatalf("legal move rejected: %v", err)
						}
						if got.Status != to {
							t.Fatalf("status = %s, want %s", got.Status, to)
						}
						return
					}

					if !errors.Is(err, types.ErrIllegalTransition) {
						t.Fatalf("got %v, want ErrIllegalTransition", err)
					}
					if CanTransition(from, role, to) {
						t.Fatal("CanTransition disagrees with the table")
					}
					stored, _ := f.store.Get(ctx, ride.ID)
					if stored.Status != from {
						t.Fatalf("rejected move changed status to %s", stored.Status)
					}
				})
			}
		}
	}
}

func TestSameStatusIsAlwaysRejected(t *testing.T) {
	for _, st := range types.RideStatuses {
		for _, role := range []types.UserRole{types.PassengerRole, types.DriverRole} {
			if CanTransition(st, role, st) {
				t.Errorf("%s may move %s to itself", role, st)
			}
		}
	}
}

// stalledConn accepts a write only after delay, like a client that stopped reading.
type stalledConn struct {
	delay time.Duration
}

func (c stalledConn) Send(any) error {
	time.Sleep(c.delay)
	return nil
}

func (stalledConn) Close() error { return nil }

func TestClaimDoesNotWaitForSlowSockets(t *testing.T) {
	log := logger.New(io.Discard, "test", logger.LevelError)
	store := memory.New()
	hub := ws.NewConnHub(log)
	notifier := notify.New(hub, log)
	t.Cleanup(notifier.Wait)

	const claimTimeout = time.Second
	svc := New(Deps{
		Store:     store,
		Finder:    store,
		Locations: store,
		Events:    store,
		Notifier:  notifier,
		Pricing:   ridecalc.New(ridecalc.DefaultTariff),
	}, Config{ClaimTimeout: claimTimeout}, log)

	passenger := uuid.New()
	hub.Register(passenger, types.PassengerRole.String(), stalledConn{delay: 700 * time.Millisecond})
	for i := 0; i < 4; i++ {
		hub.Register(uuid.New(), types.DriverRole.String(), stalledConn{delay: 700 * time.Millisecond})
	}

	ride, err := svc.Request(context.Background(), RequestInput{
		PassengerID: passenger,
		Origin:      almaty,
		Destination: models.Location{Latitude: 43.222015, Longitude: 76.851248},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	start := time.Now()
	if _, err := svc.Claim(context.Background(), ride.ID, uuid.New()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if took := time.Since(start); took >= claimTimeout {
		t.Fatalf("claim took %v, longer than the claim timeout", took)
	}
}
