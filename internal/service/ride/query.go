package ride

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// Get returns a ride to one of its parties. Drivers may also read rides that are
// still PENDING, since those are candidates.
func (s *Service) Get(ctx context.Context, rideID uuid.UUID, who models.Identity) (*models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithUserID(ctx, who.UserID.String()), rideID.String())

	ride, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if ride.HasParty(who.UserID) {
		return ride, nil
	}
	if who.Role == types.DriverRole && ride.Status == types.StatusPending {
		return ride, nil
	}
	return nil, wrap.Error(ctx, types.ErrUnauthorized)
}

// GetActive returns the user's non-terminal ride, or nil when there is none.
func (s *Service) GetActive(ctx context.Context, who models.Identity) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, who.UserID.String()), "get_active_ride")

	if !who.Role.Valid() {
		return nil, wrap.Error(ctx, types.InvalidInput("unknown role %q", who.Role))
	}

	ride, err := s.store.GetActive(ctx, who.UserID, who.Role)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not load active ride: %w", err))
	}
	return ride, nil
}
