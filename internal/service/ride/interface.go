package ride

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/google/uuid"
)

// RideStore is the ride record store. Claim, UpdateStatus and SetRating are
// conditional writes and return types.ErrConditionFailed when the condition no longer holds.
type RideStore interface {
	Create(ctx context.Context, ride *models.Ride) error
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	// GetActive returns nil when the user has no active ride.
	GetActive(ctx context.Context, userID uuid.UUID, role types.UserRole) (*models.Ride, error)
	Claim(ctx context.Context, c models.Claim) (*models.Ride, error)
	UpdateStatus(ctx context.Context, u models.StatusUpdate) (*models.Ride, error)
	SetRating(ctx context.Context, u models.RatingUpdate) (*models.Ride, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*models.Ride, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// CandidateFinder returns pending rides near a point, nearest first.
type CandidateFinder interface {
	FindNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Ride, error)
}

type LocationStore interface {
	SetDriverLocation(ctx context.Context, loc models.DriverLocation) error
	GetDriverLocation(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error)
}

// EventLog is written in the same transaction as the ride.
type EventLog interface {
	Append(ctx context.Context, entry models.RideLogEntry) error
}

// EventPublisher receives committed lifecycle entries. Failures never fail the operation.
type EventPublisher interface {
	Publish(ctx context.Context, entry models.RideLogEntry) error
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event models.Event)
	BroadcastDrivers(ctx context.Context, event models.Event, except ...uuid.UUID)
}

type Pricing interface {
	Quote(distanceMeters, durationSeconds float64) float64
	Estimate(origin, destination models.Location) ridecalc.Estimate
}

type Geocoder interface {
	GetAddress(ctx context.Context, lat, lng float64) (string, error)
}
