package ride

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

const (
	expireBatch    = 100
	noDriverReason = "no driver available"
)

// ExpirePending cancels PENDING rides older than the pending TTL on behalf of the system.
// A ride claimed in the meantime is left alone.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	ctx = wrap.WithAction(ctx, types.ActionRideExpired)

	if s.cfg.PendingTTL <= 0 {
		return 0, nil
	}

	stale, err := s.store.ListPendingBefore(ctx, s.now().Add(-s.cfg.PendingTTL), expireBatch)
	if err != nil {
		return 0, wrap.Error(ctx, err)
	}

	expired := 0
	for _, ride := range stale {
		rctx := wrap.WithRideID(ctx, ride.ID.String())

		updated, err := s.applyStatus(rctx, models.StatusUpdate{
			RideID:       ride.ID,
			From:         types.StatusPending,
			To:           types.StatusCancelled,
			At:           s.now(),
			CancelReason: noDriverReason,
			CancelledBy:  types.CancelledBySystem,
		}, nil, "")
		if err != nil {
			if errors.Is(err, types.ErrIllegalTransition) {
				continue
			}
			return expired, err
		}

		expired++
		s.notify(rctx, &updated.PassengerID, models.RideCancelled{
			RideID:      updated.ID,
			CancelledBy: types.CancelledBySystem,
			Reason:      noDriverReason,
			Ride:        updated,
		})
		s.broadcastUnavailable(rctx, updated.ID)
	}

	if expired > 0 {
		metrics.RidesExpiredTotal.WithLabelValues(serviceName).Add(float64(expired))
		s.log.Info(ctx, "expired pending rides", "count", expired)
	}
	return expired, nil
}

// RunSweeper calls ExpirePending every sweep interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context) error {
	if s.cfg.PendingTTL <= 0 || s.cfg.SweepInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.ExpirePending(ctx); err != nil {
				s.log.Error(ctx, "pending ride sweep failed", err)
			}
		}
	}
}
