package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LocationRepo struct {
	db *pgxpool.Pool
}

func NewLocationRepo(db *pgxpool.Pool) *LocationRepo {
	return &LocationRepo{db: db}
}

// SetDriverLocation keeps one row per driver. An older report never replaces a newer one.
func (r *LocationRepo) SetDriverLocation(ctx context.Context, loc models.DriverLocation) (err error) {
	const op = "LocationRepo.SetDriverLocation"
	defer func(start time.Time) { observe("location_set", start, err) }(time.Now())

	const q = `
		INSERT INTO driver_locations (driver_id, latitude, longitude, address, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (driver_id) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			address = EXCLUDED.address, updated_at = EXCLUDED.updated_at
		WHERE driver_locations.updated_at <= EXCLUDED.updated_at;`

	_, err = TxorDB(ctx, r.db).Exec(ctx, q,
		loc.DriverID, loc.Location.Latitude, loc.Location.Longitude, loc.Location.Address, loc.UpdatedAt)
	return storeError(op, err)
}

func (r *LocationRepo) GetDriverLocation(ctx context.Context, driverID uuid.UUID) (_ *models.DriverLocation, err error) {
	const op = "LocationRepo.GetDriverLocation"
	defer func(start time.Time) { observe("location_get", start, err) }(time.Now())

	const q = `SELECT latitude, longitude, address, updated_at FROM driver_locations WHERE driver_id = $1;`

	loc := models.DriverLocation{DriverID: driverID}
	err = TxorDB(ctx, r.db).QueryRow(ctx, q, driverID).Scan(
		&loc.Location.Latitude, &loc.Location.Longitude, &loc.Location.Address, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, storeError(op, err)
	}
	return &loc, nil
}
