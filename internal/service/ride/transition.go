package ride

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/google/uuid"
)

const maxReasonLen = 500

type TransitionInput struct {
	RideID    uuid.UUID
	ActorID   uuid.UUID
	ActorRole types.UserRole
	Target    types.RideStatus
	Reason    string
}

// Transition moves a ride to in.Target on behalf of the actor.
//
// Legality is checked first against the role table, then the actor's standing on the
// ride. A driver accepting a PENDING ride goes through Claim. Nothing is written
// unless both checks pass, and the write itself only applies while the ride still
// has the status that was checked.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithRideID(wrap.WithUserID(ctx, in.ActorID.String()), in.RideID.String()), types.ActionRideTransition)

	if !in.Target.Valid() {
		return nil, wrap.Error(ctx, types.InvalidInput("unknown status %q", in.Target))
	}
	if !in.ActorRole.Valid() {
		return nil, wrap.Error(ctx, types.InvalidInput("unknown role %q", in.ActorRole))
	}

	ride, err := s.store.Get(ctx, in.RideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	if in.Target == types.StatusAccepted && in.ActorRole == types.DriverRole && ride.Status == types.StatusPending {
		return s.Claim(ctx, in.RideID, in.ActorID)
	}

	if !CanTransition(ride.Status, in.ActorRole, in.Target) {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %s cannot move ride from %s to %s", types.ErrIllegalTransition, in.ActorRole, ride.Status, in.Target))
	}
	if !owns(ride, in.ActorID, in.ActorRole) {
		return nil, wrap.Error(ctx, types.ErrUnauthorized)
	}

	update := models.StatusUpdate{
		RideID: ride.ID,
		From:   ride.Status,
		To:     in.Target,
		At:     s.now(),
	}
	if in.Target == types.StatusCancelled {
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			return nil, wrap.Error(ctx, types.InvalidInput("reason must be provided"))
		}
		if len(reason) > maxReasonLen {
			return nil, wrap.Error(ctx, types.InvalidInput("reason must not be more than 500 characters long"))
		}
		update.CancelReason = reason
		update.CancelledBy = types.CancelledByRole(in.ActorRole)
	}

	updated, err := s.applyStatus(ctx, update, &in.ActorID, in.ActorRole)
	if err != nil {
		return nil, err
	}

	// ровно одно уведомление второй стороне
	s.notify(ctx, updated.Counterparty(in.ActorID), statusEvent(update, in.ActorRole, updated))
	if update.From == types.StatusPending {
		s.broadcastUnavailable(ctx, updated.ID)
	}

	s.log.Info(ctx, "ride status changed", "from", update.From, "to", update.To)
	return updated, nil
}

// Cancel is Transition to CANCELLED.
func (s *Service) Cancel(ctx context.Context, rideID, actorID uuid.UUID, role types.UserRole, reason string) (*models.Ride, error) {
	return s.Transition(ctx, TransitionInput{
		RideID:    rideID,
		ActorID:   actorID,
		ActorRole: role,
		Target:    types.StatusCancelled,
		Reason:    reason,
	})
}

// applyStatus performs the conditional write together with its log entry.
func (s *Service) applyStatus(ctx context.Context, update models.StatusUpdate, actorID *uuid.UUID, role types.UserRole) (*models.Ride, error) {
	var (
		updated *models.Ride
		entry   models.RideLogEntry
	)
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.UpdateStatus(ctx, update)
		if err != nil {
			return err
		}
		entry = s.logEntry(updated, update.From, actorID, role, types.EventForStatus(update.To))
		return s.appendEvent(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, types.ErrConditionFailed) {
			return nil, wrap.Error(ctx, fmt.Errorf("%w: ride is no longer %s", types.ErrIllegalTransition, update.From))
		}
		return nil, wrap.Error(ctx, fmt.Errorf("could not update ride status: %w", err))
	}

	metrics.RecordTransition(serviceName, update.From.String(), update.To.String())
	s.publish(ctx, entry)

	return updated, nil
}

// owns reports whether actorID holds role on ride.
func owns(ride *models.Ride, actorID uuid.UUID, role types.UserRole) bool {
	switch role {
	case types.PassengerRole:
		return ride.PassengerID == actorID
	case types.DriverRole:
		return ride.DriverID != nil && *ride.DriverID == actorID
	default:
		return false
	}
}

func statusEvent(update models.StatusUpdate, role types.UserRole, ride *models.Ride) models.Event {
	if update.To == types.StatusCancelled {
		return models.RideCancelled{
			RideID:      ride.ID,
			CancelledBy: update.CancelledBy,
			Reason:      update.CancelReason,
			Ride:        ride,
		}
	}
	return models.RideStatusChanged{
		RideID:    ride.ID,
		From:      update.From,
		To:        update.To,
		ActorRole: role,
		Ride:      ride,
	}
}
