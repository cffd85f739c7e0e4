package redis

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	serviceName = "dispatch"

	// overfetch covers index entries that turn out to be stale.
	overfetch = 2
)

type RideReader interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*models.Ride, error)
}

// PendingIndex keeps the origins of PENDING rides in a GEO set. It learns about
// rides from committed lifecycle entries and answers candidate searches from the
// set, re-reading every hit from the ride store so a stale entry is never served.
type PendingIndex struct {
	client Client
	rides  RideReader
	key    string
	log    logger.Logger
}

func NewPendingIndex(client Client, rides RideReader, key string, log logger.Logger) *PendingIndex {
	return &PendingIndex{client: client, rides: rides, key: key, log: log}
}

// Publish adds a ride that entered PENDING and drops one that left it.
func (p *PendingIndex) Publish(ctx context.Context, entry models.RideLogEntry) error {
	if entry.ToStatus == types.StatusPending && entry.Ride != nil {
		return p.add(ctx, entry.Ride)
	}
	if entry.FromStatus == types.StatusPending {
		return p.remove(ctx, entry.RideID)
	}
	return nil
}

func (p *PendingIndex) add(ctx context.Context, ride *models.Ride) error {
	err := p.client.GeoAdd(ctx, p.key, &goredis.GeoLocation{
		Longitude: ride.Origin.Longitude,
		Latitude:  ride.Origin.Latitude,
		Name:      ride.ID.String(),
	}).Err()
	metrics.RecordPublish(serviceName, "redis", p.key, err)
	return unavailable(err)
}

func (p *PendingIndex) remove(ctx context.Context, rideID uuid.UUID) error {
	err := p.client.ZRem(ctx, p.key, rideID.String()).Err()
	metrics.RecordPublish(serviceName, "redis", p.key, err)
	return unavailable(err)
}

// Warm loads the rides that are PENDING right now, e.g. after a restart with an empty set.
func (p *PendingIndex) Warm(ctx context.Context, limit int) (int, error) {
	rides, err := p.rides.ListPendingBefore(ctx, time.Now().UTC().Add(time.Second), limit)
	if err != nil {
		return 0, err
	}
	for _, r := range rides {
		if err := p.add(ctx, r); err != nil {
			return 0, err
		}
	}
	return len(rides), nil
}

// FindNearby answers with rides that are still PENDING, nearest first.
func (p *PendingIndex) FindNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Ride, error) {
	hits, err := p.client.GeoRadius(ctx, p.key, q.Point.Longitude, q.Point.Latitude, &goredis.GeoRadiusQuery{
		Radius:    q.RadiusMeters,
		Unit:      "m",
		WithCoord: true,
		WithDist:  true,
		Count:     q.Limit * overfetch,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]*models.Ride, 0, q.Limit)
	for _, h := range hits {
		if len(out) == q.Limit {
			break
		}

		id, err := uuid.Parse(h.Name)
		if err != nil {
			p.evict(ctx, h.Name)
			continue
		}
		ride, err := p.rides.Get(ctx, id)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				p.evict(ctx, h.Name)
				continue
			}
			return nil, err
		}
		if ride.Status != types.StatusPending {
			p.evict(ctx, h.Name)
			continue
		}

		dist := h.Dist
		ride.DistanceToOrigin = &dist
		out = append(out, ride)
	}
	return out, nil
}

func (p *PendingIndex) evict(ctx context.Context, member string) {
	if err := p.client.ZRem(ctx, p.key, member).Err(); err != nil {
		p.log.Warn(ctx, "failed to evict stale pending entry", "member", member, "error", err.Error())
	}
}
