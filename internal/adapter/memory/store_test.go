package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

func pendingRide(passenger uuid.UUID, lat, lng float64, created time.Time) *models.Ride {
	return &models.Ride{
		ID:          uuid.New(),
		PassengerID: passenger,
		Origin:      models.Location{Latitude: lat, Longitude: lng},
		Destination: models.Location{Latitude: lat + 0.01, Longitude: lng + 0.01},
		Status:      types.StatusPending,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestCreateRejectsSecondActiveRide(t *testing.T) {
	s := New()
	ctx := context.Background()
	passenger := uuid.New()

	if err := s.Create(ctx, pendingRide(passenger, 43.2, 76.9, time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, pendingRide(passenger, 43.2, 76.9, time.Now()))
	if !errors.Is(err, types.ErrActiveRideExist) {
		t.Fatalf("expected ErrActiveRideExist, got %v", err)
	}
}

func TestClaimIsConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	ride := pendingRide(uuid.New(), 43.2, 76.9, time.Now())
	_ = s.Create(ctx, ride)

	first := uuid.New()
	got, err := s.Claim(ctx, models.Claim{RideID: ride.ID, DriverID: first, At: time.Now()})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got.Status != types.StatusAccepted || *got.DriverID != first || got.AcceptedAt == nil {
		t.Fatalf("unexpected claimed ride: %+v", got)
	}
	if got.Passenger == nil || got.Passenger.ID != ride.PassengerID {
		t.Fatal("claimed ride must carry the passenger profile")
	}

	_, err = s.Claim(ctx, models.Claim{RideID: ride.ID, DriverID: uuid.New(), At: time.Now()})
	if !errors.Is(err, types.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}

	stored, _ := s.Get(ctx, ride.ID)
	if *stored.DriverID != first {
		t.Fatal("losing claim overwrote the driver")
	}
}

func TestClaimRejectsBusyDriver(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := pendingRide(uuid.New(), 43.2, 76.9, time.Now())
	b := pendingRide(uuid.New(), 43.2, 76.9, time.Now())
	_ = s.Create(ctx, a)
	_ = s.Create(ctx, b)

	driver := uuid.New()
	if _, err := s.Claim(ctx, models.Claim{RideID: a.ID, DriverID: driver, At: time.Now()}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err := s.Claim(ctx, models.Claim{RideID: b.ID, DriverID: driver, At: time.Now()})
	if !errors.Is(err, types.ErrDriverBusy) {
		t.Fatalf("expected ErrDriverBusy, got %v", err)
	}
}

func TestUpdateStatusStampsFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	ride := pendingRide(uuid.New(), 43.2, 76.9, time.Now())
	_ = s.Create(ctx, ride)

	at := time.Now()
	got, err := s.UpdateStatus(ctx, models.StatusUpdate{
		RideID: ride.ID, From: types.StatusPending, To: types.StatusCancelled, At: at,
		CancelReason: "changed plans", CancelledBy: types.CancelledByPassenger,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.EndTime == nil || got.CancelReason != "changed plans" || got.CancelledBy != types.CancelledByPassenger {
		t.Fatalf("cancellation fields not set: %+v", got)
	}

	_, err = s.UpdateStatus(ctx, models.StatusUpdate{RideID: ride.ID, From: types.StatusPending, To: types.StatusCancelled, At: at})
	if !errors.Is(err, types.ErrConditionFailed) {
		t.Fatalf("stale update must fail, got %v", err)
	}
}

func TestReturnedRidesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	ride := pendingRide(uuid.New(), 43.2, 76.9, time.Now())
	_ = s.Create(ctx, ride)

	got, _ := s.Get(ctx, ride.ID)
	got.Status = types.StatusCompleted
	ride.Status = types.StatusCompleted

	again, _ := s.Get(ctx, ride.ID)
	if again.Status != types.StatusPending {
		t.Fatal("store state leaked to caller")
	}
}

func TestFindNearbyOrdersPendingOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	far := pendingRide(uuid.New(), 43.25, 76.95, now)
	near := pendingRide(uuid.New(), 43.201, 76.901, now)
	outside := pendingRide(uuid.New(), 44.5, 78.0, now)
	taken := pendingRide(uuid.New(), 43.2001, 76.9001, now)
	for _, r := range []*models.Ride{far, near, outside, taken} {
		_ = s.Create(ctx, r)
	}
	_, _ = s.Claim(ctx, models.Claim{RideID: taken.ID, DriverID: uuid.New(), At: now})

	got, err := s.FindNearby(ctx, models.NearbyQuery{
		Point:        models.Location{Latitude: 43.2, Longitude: 76.9},
		RadiusMeters: 10000,
		Limit:        5,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 || got[0].ID != near.ID || got[1].ID != far.ID {
		t.Fatalf("unexpected candidates: %v", got)
	}
	if got[0].DistanceToOrigin == nil || *got[0].DistanceToOrigin > *got[1].DistanceToOrigin {
		t.Fatal("distances missing or out of order")
	}

	limited, _ := s.FindNearby(ctx, models.NearbyQuery{
		Point:        models.Location{Latitude: 43.2, Longitude: 76.9},
		RadiusMeters: 10000,
		Limit:        1,
	})
	if len(limited) != 1 || limited[0].ID != near.ID {
		t.Fatalf("limit not applied: %v", limited)
	}
}

func TestListPendingBefore(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	old := pendingRide(uuid.New(), 43.2, 76.9, now.Add(-time.Hour))
	fresh := pendingRide(uuid.New(), 43.2, 76.9, now)
	_ = s.Create(ctx, old)
	_ = s.Create(ctx, fresh)

	got, _ := s.ListPendingBefore(ctx, now.Add(-time.Minute), 10)
	if len(got) != 1 || got[0].ID != old.ID {
		t.Fatalf("unexpected stale rides: %v", got)
	}
}

func TestSetRatingOncePerParty(t *testing.T) {
	s := New()
	ctx := context.Background()
	ride := pendingRide(uuid.New(), 43.2, 76.9, time.Now())
	ride.Status = types.StatusCompleted
	s.rides[ride.ID] = ride

	u := models.RatingUpdate{RideID: ride.ID, By: types.PassengerRole, Score: 5}
	if _, err := s.SetRating(ctx, u); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if _, err := s.SetRating(ctx, u); !errors.Is(err, types.ErrConditionFailed) {
		t.Fatalf("second rating must fail, got %v", err)
	}
	if _, err := s.SetRating(ctx, models.RatingUpdate{RideID: ride.ID, By: types.DriverRole, Score: 4}); err != nil {
		t.Fatalf("driver rating: %v", err)
	}
}

func TestDriverLocation(t *testing.T) {
	s := New()
	ctx := context.Background()
	driver := uuid.New()

	if _, err := s.GetDriverLocation(ctx, driver); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	loc := models.DriverLocation{DriverID: driver, Location: models.Location{Latitude: 1, Longitude: 2}}
	_ = s.SetDriverLocation(ctx, loc)
	got, err := s.GetDriverLocation(ctx, driver)
	if err != nil || got.Location != loc.Location {
		t.Fatalf("unexpected location %v, %v", got, err)
	}
}
