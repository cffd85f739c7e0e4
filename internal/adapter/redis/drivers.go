package redis

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DriverLocations keeps the last reported position of each driver in a GEO set.
type DriverLocations struct {
	client Client
	key    string
}

func NewDriverLocations(client Client, key string) *DriverLocations {
	return &DriverLocations{client: client, key: key}
}

func (d *DriverLocations) SetDriverLocation(ctx context.Context, loc models.DriverLocation) error {
	member := loc.DriverID.String()
	err := d.client.GeoAdd(ctx, d.key, &goredis.GeoLocation{
		Longitude: loc.Location.Longitude,
		Latitude:  loc.Location.Latitude,
		Name:      member,
	}).Err()
	if err != nil {
		return unavailable(err)
	}
	return unavailable(d.client.HSet(ctx, metaKey(member), "updated_at", loc.UpdatedAt.Format(time.RFC3339Nano)).Err())
}

func (d *DriverLocations) GetDriverLocation(ctx context.Context, driverID uuid.UUID) (*models.DriverLocation, error) {
	member := driverID.String()
	pos, err := d.client.GeoPos(ctx, d.key, member).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(pos) == 0 || pos[0] == nil {
		return nil, types.ErrNotFound
	}

	loc := &models.DriverLocation{
		DriverID: driverID,
		Location: models.Location{Latitude: pos[0].Latitude, Longitude: pos[0].Longitude},
	}
	// метка времени необязательна
	if v, err := d.client.HGet(ctx, metaKey(member), "updated_at").Result(); err == nil {
		loc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	return loc, nil
}

func metaKey(driverID string) string { return "driver:meta:" + driverID }
