package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/google/uuid"
)

// Claim assigns driverID to a PENDING ride. The store applies it as one conditional
// write, so of any number of concurrent claims on a ride at most one succeeds; the
// others get types.ErrAlreadyClaimed or types.ErrNoLongerAvailable. The attempt is
// bounded by the claim timeout and reports types.ErrClaimTimeout when it runs out.
func (s *Service) Claim(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithRideID(wrap.WithDriverID(ctx, driverID.String()), rideID.String()), types.ActionRideClaimed)

	start := time.Now()
	claimCtx, cancel := context.WithTimeout(ctx, s.cfg.ClaimTimeout)
	defer cancel()

	ride, err := s.claim(claimCtx, rideID, driverID)
	if err != nil && claimCtx.Err() != nil && ctx.Err() == nil {
		err = fmt.Errorf("%w: %w", types.ErrClaimTimeout, err)
	}
	metrics.RecordClaim(serviceName, claimOutcome(err), time.Since(start))

	if err != nil {
		if types.IsClaimRejection(err) {
			s.log.Info(ctx, "claim rejected", "reason", err.Error())
		}
		return nil, wrap.Error(ctx, err)
	}

	return ride, nil
}

func (s *Service) claim(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	claim := models.Claim{RideID: rideID, DriverID: driverID, At: s.now()}

	var (
		ride  *models.Ride
		entry models.RideLogEntry
	)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		ride, err = s.store.Claim(ctx, claim)
		if err != nil {
			return err
		}
		entry = s.logEntry(ride, types.StatusPending, &driverID, types.DriverRole, types.EventDriverMatched)
		return s.appendEvent(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, types.ErrConditionFailed) {
			return s.resolveLostClaim(ctx, rideID, driverID)
		}
		return nil, err
	}

	metrics.RecordTransition(serviceName, types.StatusPending.String(), types.StatusAccepted.String())
	s.publish(ctx, entry)

	driver := s.profile(ctx, driverID, types.DriverRole)
	s.notify(ctx, &ride.PassengerID, models.RideAccepted{Ride: ride, Driver: *driver})
	s.broadcastUnavailable(ctx, ride.ID, driverID)

	s.log.Info(wrap.WithPassengerID(ctx, ride.PassengerID.String()), "ride claimed")
	return ride, nil
}

// resolveLostClaim explains a claim whose condition failed. A driver retrying its own
// winning claim gets the ride back without new side effects.
func (s *Service) resolveLostClaim(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	current, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch {
	case current.DriverID != nil && *current.DriverID == driverID && current.Status == types.StatusAccepted:
		if current.Passenger == nil {
			current.Passenger = s.profile(ctx, current.PassengerID, types.PassengerRole)
		}
		return current, nil
	case current.DriverID != nil:
		return nil, types.ErrAlreadyClaimed
	default:
		return nil, types.ErrNoLongerAvailable
	}
}

// profile loads a party profile, falling back to the bare identity.
func (s *Service) profile(ctx context.Context, userID uuid.UUID, role types.UserRole) *models.Profile {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.log.Warn(ctx, "failed to load profile", "user_id", userID, "error", err.Error())
		}
		return &models.Profile{ID: userID, Role: role}
	}
	return p
}

func claimOutcome(err error) string {
	switch {
	case err == nil:
		return "won"
	case errors.Is(err, types.ErrClaimTimeout):
		return "timeout"
	case errors.Is(err, types.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, types.ErrNoLongerAvailable):
		return "no_longer_available"
	default:
		return "error"
	}
}
