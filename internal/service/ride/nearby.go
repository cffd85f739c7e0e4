package ride

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// ListNearby returns pending rides around point, or around the driver's last reported
// position when point is nil. The result is a snapshot; claiming is a separate step.
func (s *Service) ListNearby(ctx context.Context, driverID uuid.UUID, point *models.Location) ([]*models.Ride, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionNearbyRides)

	if point == nil {
		last, err := s.locations.GetDriverLocation(ctx, driverID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil, wrap.Error(ctx, types.InvalidInput("no location reported for driver"))
			}
			return nil, wrap.Error(ctx, fmt.Errorf("could not load driver location: %w", err))
		}
		point = &last.Location
	}

	return s.FindNearby(ctx, *point, s.cfg.SearchRadiusMeters, s.cfg.CandidateLimit)
}

// FindNearby returns at most limit PENDING rides whose origin lies within radiusMeters
// of loc, nearest first.
func (s *Service) FindNearby(ctx context.Context, loc models.Location, radiusMeters float64, limit int) ([]*models.Ride, error) {
	if !loc.Valid() {
		return nil, wrap.Error(ctx, types.InvalidInput("location must have valid coordinates"))
	}
	if radiusMeters <= 0 || limit <= 0 {
		return nil, wrap.Error(ctx, types.InvalidInput("radius and limit must be positive"))
	}

	rides, err := s.finder.FindNearby(ctx, models.NearbyQuery{
		Point:        loc,
		RadiusMeters: radiusMeters,
		Limit:        limit,
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("candidate search failed: %w", err))
	}

	out := rides[:0]
	for _, r := range rides {
		if r.Status == types.StatusPending && r.Origin.Valid() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return distanceOf(out[i]) < distanceOf(out[j])
	})
	if len(out) > limit {
		out = out[:limit]
	}

	s.log.Debug(ctx, "nearby rides found", "count", len(out))
	return out, nil
}

func distanceOf(r *models.Ride) float64 {
	if r.DistanceToOrigin == nil {
		return 0
	}
	return *r.DistanceToOrigin
}

// UpdateDriverLocation records the driver's latest position. Last write wins.
func (s *Service) UpdateDriverLocation(ctx context.Context, driverID uuid.UUID, loc models.Location) error {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionLocationUpdated)

	if !loc.Valid() {
		return wrap.Error(ctx, types.InvalidInput("location must have valid coordinates"))
	}

	err := s.locations.SetDriverLocation(ctx, models.DriverLocation{
		DriverID:  driverID,
		Location:  loc,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("could not store driver location: %w", err))
	}
	return nil
}
