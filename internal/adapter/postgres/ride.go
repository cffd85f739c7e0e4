package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/google/uuid"
)

const serviceName = "dispatch"

// rideColumns is the column order scanRide expects.
const rideColumns = `
	id, passenger_id, driver_id,
	origin_lat, origin_lng, origin_address,
	dest_lat, dest_lng, dest_address,
	distance_m, duration_s, price, status, payment_method,
	accepted_at, start_time, end_time, cancel_reason, cancelled_by,
	rating_by_passenger, rating_by_driver, comment_by_passenger, comment_by_driver,
	created_at, updated_at`

type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

func observe(op string, start time.Time, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
	}
	metrics.RecordDatabaseQuery(serviceName, op, err, time.Since(start))
}

func scanRide(row pgx.Row, extra ...any) (*models.Ride, error) {
	var (
		r                  models.Ride
		byPassenger, byDrv *int
		pComment, dComment string
	)
	dest := []any{
		&r.ID, &r.PassengerID, &r.DriverID,
		&r.Origin.Latitude, &r.Origin.Longitude, &r.Origin.Address,
		&r.Destination.Latitude, &r.Destination.Longitude, &r.Destination.Address,
		&r.Distance, &r.Duration, &r.Price, &r.Status, &r.PaymentMethod,
		&r.AcceptedAt, &r.StartTime, &r.EndTime, &r.CancelReason, &r.CancelledBy,
		&byPassenger, &byDrv, &pComment, &dComment,
		&r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if byPassenger != nil || byDrv != nil {
		r.Rating = &models.Rating{
			ByPassenger:      byPassenger,
			ByDriver:         byDrv,
			PassengerComment: pComment,
			DriverComment:    dComment,
		}
	}
	return &r, nil
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) (err error) {
	const op = "RideRepo.Create"
	defer func(start time.Time) { observe("ride_create", start, err) }(time.Now())

	query := `
		INSERT INTO rides (
			id, passenger_id, origin_lat, origin_lng, origin_address,
			dest_lat, dest_lng, dest_address,
			distance_m, duration_s, price, status, payment_method,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, ride.PassengerID,
		ride.Origin.Latitude, ride.Origin.Longitude, ride.Origin.Address,
		ride.Destination.Latitude, ride.Destination.Longitude, ride.Destination.Address,
		ride.Distance, ride.Duration, ride.Price, ride.Status, ride.PaymentMethod,
		ride.CreatedAt, ride.UpdatedAt,
	)
	return storeError(op, err)
}

func (r *RideRepo) Get(ctx context.Context, rideID uuid.UUID) (_ *models.Ride, err error) {
	const op = "RideRepo.Get"
	defer func(start time.Time) { observe("ride_get", start, err) }(time.Now())

	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1;`

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, storeError(op, err)
	}
	return ride, nil
}

func (r *RideRepo) GetActive(ctx context.Context, userID uuid.UUID, role types.UserRole) (_ *models.Ride, err error) {
	const op = "RideRepo.GetActive"
	defer func(start time.Time) { observe("ride_get_active", start, err) }(time.Now())

	column := "passenger_id"
	if role == types.DriverRole {
		column = "driver_id"
	}
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE ` + column + ` = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY created_at DESC
		LIMIT 1;`

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(op, err)
	}
	return ride, nil
}

// Claim assigns the driver only while the ride is PENDING. Concurrent claims queue on
// the row lock and re-check the condition, so exactly one of them updates the row.
func (r *RideRepo) Claim(ctx context.Context, c models.Claim) (_ *models.Ride, err error) {
	const op = "RideRepo.Claim"
	defer func(start time.Time) { observe("ride_claim", start, err) }(time.Now())

	query := `
		WITH claimed AS (
			UPDATE rides
			SET driver_id = $2, status = 'ACCEPTED', accepted_at = $3, updated_at = $3
			WHERE id = $1 AND status = 'PENDING'
			RETURNING ` + rideColumns + `
		)
		SELECT c.*, COALESCE(u.name, ''), COALESCE(u.phone, ''), COALESCE(u.rating, 0)
		FROM claimed c
		LEFT JOIN users u ON u.id = c.passenger_id;`

	var passenger models.Profile
	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, c.RideID, c.DriverID, c.At),
		&passenger.Name, &passenger.Phone, &passenger.Rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrConditionFailed
		}
		return nil, storeError(op, err)
	}

	passenger.ID = ride.PassengerID
	passenger.Role = types.PassengerRole
	ride.Passenger = &passenger
	return ride, nil
}

// UpdateStatus writes u only while the ride still has status u.From.
func (r *RideRepo) UpdateStatus(ctx context.Context, u models.StatusUpdate) (_ *models.Ride, err error) {
	const op = "RideRepo.UpdateStatus"
	defer func(start time.Time) { observe("ride_update_status", start, err) }(time.Now())

	current, err := r.Get(ctx, u.RideID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrConditionFailed
		}
		return nil, err
	}
	if current.Status != u.From {
		return nil, types.ErrConditionFailed
	}
	current.Apply(u)

	query := `
		UPDATE rides
		SET status = $3, updated_at = $4, start_time = $5, end_time = $6,
			cancel_reason = $7, cancelled_by = $8
		WHERE id = $1 AND status = $2
		RETURNING ` + rideColumns + `;`

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query,
		u.RideID, u.From, current.Status, current.UpdatedAt, current.StartTime, current.EndTime,
		current.CancelReason, current.CancelledBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrConditionFailed
		}
		return nil, storeError(op, err)
	}
	return ride, nil
}

// ratingColumns holds the score and comment columns of each rating party.
var ratingColumns = map[types.UserRole][2]string{
	types.PassengerRole: {"rating_by_passenger", "comment_by_passenger"},
	types.DriverRole:    {"rating_by_driver", "comment_by_driver"},
}

// SetRating stores the score only for a COMPLETED ride the role has not rated yet.
func (r *RideRepo) SetRating(ctx context.Context, u models.RatingUpdate) (_ *models.Ride, err error) {
	const op = "RideRepo.SetRating"
	defer func(start time.Time) { observe("ride_set_rating", start, err) }(time.Now())

	columns, ok := ratingColumns[u.By]
	if !ok {
		return nil, fmt.Errorf("%s: %w: role %q cannot rate", op, types.ErrInvalidInput, u.By)
	}

	query := `
		UPDATE rides
		SET ` + columns[0] + ` = $2, ` + columns[1] + ` = $3
		WHERE id = $1 AND status = 'COMPLETED' AND ` + columns[0] + ` IS NULL
		RETURNING ` + rideColumns + `;`

	ride, err := scanRide(TxorDB(ctx, r.db).QueryRow(ctx, query, u.RideID, u.Score, u.Comment))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrConditionFailed
		}
		return nil, storeError(op, err)
	}
	return ride, nil
}

func (r *RideRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) (_ []*models.Ride, err error) {
	const op = "RideRepo.ListPendingBefore"
	defer func(start time.Time) { observe("ride_list_pending", start, err) }(time.Now())

	// LIMIT NULL means no limit
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT NULLIF($2, 0);`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, before, limit)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	var out []*models.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		out = append(out, ride)
	}
	return out, storeError(op, rows.Err())
}

// FindNearby uses the GIST index on origin_geog. Distances are in meters.
func (r *RideRepo) FindNearby(ctx context.Context, q models.NearbyQuery) (_ []*models.Ride, err error) {
	const op = "RideRepo.FindNearby"
	defer func(start time.Time) { observe("ride_find_nearby", start, err) }(time.Now())

	query := `
		SELECT ` + rideColumns + `,
			ST_Distance(origin_geog, ST_MakePoint($1, $2)::geography) AS distance
		FROM rides
		WHERE status = 'PENDING'
		  AND ST_DWithin(origin_geog, ST_MakePoint($1, $2)::geography, $3)
		ORDER BY distance
		LIMIT $4;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query, q.Point.Longitude, q.Point.Latitude, q.RadiusMeters, q.Limit)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	out := make([]*models.Ride, 0, q.Limit)
	for rows.Next() {
		var dist float64
		ride, err := scanRide(rows, &dist)
		if err != nil {
			return nil, storeError(op, err)
		}
		ride.DistanceToOrigin = &dist
		out = append(out, ride)
	}
	return out, storeError(op, rows.Err())
}
