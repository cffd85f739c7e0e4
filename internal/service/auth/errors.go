package auth

import (
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", types.ErrUnauthenticated)
	ErrExpToken     = fmt.Errorf("%w: expired token", types.ErrUnauthenticated)
	ErrInvalidRole  = errors.New("role must be PASSENGER or DRIVER")
)
