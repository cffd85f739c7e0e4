package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrUnauthorized      = errors.New("no standing on this ride")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrAlreadyClaimed    = errors.New("ride already claimed")
	ErrNoLongerAvailable = errors.New("ride no longer available")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrClaimTimeout      = errors.New("claim did not resolve in time")

	ErrNotFound     = errors.New("not found")
	ErrRideNotFound = fmt.Errorf("ride %w", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	ErrAlreadyRated    = errors.New("ride already rated by this party")
	ErrActiveRideExist = errors.New("passenger already has an active ride")
	ErrDriverBusy      = fmt.Errorf("%w: driver already has an active ride", ErrIllegalTransition)

	// ErrConditionFailed is returned by stores when a conditional write matched no row.
	ErrConditionFailed = errors.New("conditional write did not apply")
)

// IsClaimRejection reports whether err is the ordinary outcome of losing a claim race.
func IsClaimRejection(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrNoLongerAvailable)
}

// InvalidInput wraps ErrInvalidInput with a field description.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
