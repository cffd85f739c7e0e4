package wrap

import (
	"context"
	"errors"
)

// Error attaches the LogCtx of ctx to err so the failing action can be logged higher up.
// An error that already carries a LogCtx keeps the innermost one.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return err
	}

	lc, _ := FromContext(ctx)
	return &errorWithLogCtx{
		err:    err,
		logCtx: lc,
	}
}
