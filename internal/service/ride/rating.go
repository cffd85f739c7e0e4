package ride

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type RateInput struct {
	RideID    uuid.UUID
	ActorID   uuid.UUID
	ActorRole types.UserRole
	Score     int
	Comment   string
}

// Rate stores the actor's score of the other party. Each party rates once, only after COMPLETED.
func (s *Service) Rate(ctx context.Context, in RateInput) (*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithRideID(wrap.WithUserID(ctx, in.ActorID.String()), in.RideID.String()), types.ActionRideRated)

	if in.Score < 1 || in.Score > 5 {
		return nil, wrap.Error(ctx, types.InvalidInput("score must be between 1 and 5"))
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxReasonLen {
		return nil, wrap.Error(ctx, types.InvalidInput("comment must not be more than 500 characters long"))
	}

	ride, err := s.store.Get(ctx, in.RideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !owns(ride, in.ActorID, in.ActorRole) {
		return nil, wrap.Error(ctx, types.ErrUnauthorized)
	}
	if ride.Status != types.StatusCompleted {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: only completed rides can be rated", types.ErrIllegalTransition))
	}

	var (
		updated *models.Ride
		entry   models.RideLogEntry
	)
	err = s.trm.Do(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.SetRating(ctx, models.RatingUpdate{
			RideID:  ride.ID,
			By:      in.ActorRole,
			Score:   in.Score,
			Comment: comment,
		})
		if err != nil {
			return err
		}
		entry = s.logEntry(updated, updated.Status, &in.ActorID, in.ActorRole, types.EventRideRated)
		return s.appendEvent(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, types.ErrConditionFailed) {
			return nil, wrap.Error(ctx, types.ErrAlreadyRated)
		}
		return nil, wrap.Error(ctx, fmt.Errorf("could not store rating: %w", err))
	}

	s.publish(ctx, entry)
	s.notify(ctx, updated.Counterparty(in.ActorID), models.RideRated{
		RideID:  updated.ID,
		By:      in.ActorRole,
		Score:   in.Score,
		Comment: comment,
	})

	return updated, nil
}
