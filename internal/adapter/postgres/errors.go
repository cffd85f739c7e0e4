package postgres

import (
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	constraintActivePassenger = "rides_active_passenger_idx"
	constraintActiveDriver    = "rides_active_driver_idx"
)

// storeError maps driver errors onto the domain taxonomy. Row-level violations keep
// their meaning; everything else means the store could not serve the call.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return types.ErrNotFound
	case postgres.IsForeignKeyViolation(err):
		// the referenced ride is gone
		return fmt.Errorf("%s: %w: %w", op, types.ErrRideNotFound, err)
	case postgres.IsUniqueViolation(err):
		switch postgres.ConstraintName(err) {
		case constraintActivePassenger:
			return types.ErrActiveRideExist
		case constraintActiveDriver:
			return types.ErrDriverBusy
		}
		return fmt.Errorf("%s: %w", op, err)
	case postgres.IsConstraintViolation(err):
		return fmt.Errorf("%s: %w: %w", op, types.ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
	}
}
