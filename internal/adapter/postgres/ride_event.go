package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RideEventRepo struct {
	db *pgxpool.Pool
}

func NewRideEventRepo(db *pgxpool.Pool) *RideEventRepo {
	return &RideEventRepo{db: db}
}

// Append inserts a lifecycle entry, inside the caller's transaction when there is one.
func (r *RideEventRepo) Append(ctx context.Context, e models.RideLogEntry) (err error) {
	const op = "RideEventRepo.Append"
	defer func(start time.Time) { observe("ride_event_append", start, err) }(time.Now())

	data, err := json.Marshal(e.Ride)
	if err != nil {
		return fmt.Errorf("%s: marshal ride: %w", op, err)
	}

	query := `
		INSERT INTO ride_events (id, ride_id, event_type, actor_id, actor_role, from_status, to_status, event_data, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		e.ID, e.RideID, string(e.Type), e.ActorID, string(e.ActorRole),
		string(e.FromStatus), string(e.ToStatus), data, e.OccurredAt,
	)
	return storeError(op, err)
}
