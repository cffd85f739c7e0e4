package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
)

type (
	Authenticator interface {
		Authenticate(ctx context.Context, token string) (models.Identity, error)
	}

	Middleware struct {
		auth Authenticator
		log  logger.Logger
	}
)

func NewMiddleware(auth Authenticator, log logger.Logger) *Middleware {
	return &Middleware{
		auth: auth,
		log:  log,
	}
}
