package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action      string
		UserID      string
		RequestID   string
		RideID      string
		DriverID    string
		PassengerID string
	}

	logCtxKeyStruct struct{}
)

var logCtxKey = &logCtxKeyStruct{}

// FromContext returns the LogCtx stored in ctx.
func FromContext(ctx context.Context) (LogCtx, bool) {
	lc, ok := ctx.Value(logCtxKey).(LogCtx)
	return lc, ok
}

// WithLogCtx merges newLc into the LogCtx already stored in ctx. Empty fields keep the old value.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	lc, _ := FromContext(ctx)
	return context.WithValue(ctx, logCtxKey, merge(lc, newLc))
}

func merge(old, newLc LogCtx) LogCtx {
	pick := func(n, o string) string {
		if n == "" {
			return o
		}
		return n
	}
	return LogCtx{
		Action:      pick(newLc.Action, old.Action),
		UserID:      pick(newLc.UserID, old.UserID),
		RequestID:   pick(newLc.RequestID, old.RequestID),
		RideID:      pick(newLc.RideID, old.RideID),
		DriverID:    pick(newLc.DriverID, old.DriverID),
		PassengerID: pick(newLc.PassengerID, old.PassengerID),
	}
}

func update(ctx context.Context, fn func(*LogCtx)) context.Context {
	lc, _ := FromContext(ctx)
	fn(&lc)
	return context.WithValue(ctx, logCtxKey, lc)
}

// WithUserID adds or updates the UserID in the LogCtx within the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.UserID = userID })
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RequestID = requestID })
}

// WithRideID adds or updates the RideID in the LogCtx within the context
func WithRideID(ctx context.Context, rideID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.RideID = rideID })
}

func WithDriverID(ctx context.Context, driverID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.DriverID = driverID })
}

func WithPassengerID(ctx context.Context, passengerID string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.PassengerID = passengerID })
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	return update(ctx, func(lc *LogCtx) { lc.Action = action })
}

// GetRequestID returns the request id stored in ctx or an empty string.
func GetRequestID(ctx context.Context) string {
	lc, _ := FromContext(ctx)
	return lc.RequestID
}
