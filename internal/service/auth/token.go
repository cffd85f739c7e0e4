package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access_token"

// TokenService verifies bearer credentials issued by the identity provider.
// Tokens are HS256 JWTs carrying user_id and role claims.
type TokenService struct {
	secret    []byte
	AccessTTL time.Duration
	now       func() time.Time
}

func NewTokenService(secret string, accessTTL time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		AccessTTL: accessTTL,
		now:       time.Now,
	}
}

// Issue signs an access token for identity. Used by tooling and tests; the
// production identity provider shares the secret.
func (s *TokenService) Issue(identity models.Identity) (string, error) {
	if !identity.Role.Valid() {
		return "", ErrInvalidRole
	}

	issuedAt := s.now().UTC()
	claims := jwt.MapClaims{
		"typ":     accessTokenType,
		"jti":     uuid.NewString(),
		"user_id": identity.UserID.String(),
		"role":    identity.Role.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(s.AccessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Authenticate validates token and returns the identity it carries.
func (s *TokenService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, wrap.Error(ctx, ErrExpToken)
		}
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}

	mc, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}

	if typ, _ := mc["typ"].(string); typ != accessTokenType {
		return models.Identity{}, wrap.Error(ctx, ErrInvalidToken)
	}

	userIDStr, _ := mc["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return models.Identity{}, wrap.Error(ctx, fmt.Errorf("%w: invalid 'user_id' in token claims", ErrInvalidToken))
	}

	role, _ := mc["role"].(string)
	identity := models.Identity{UserID: userID, Role: types.UserRole(role)}
	if !identity.Role.Valid() {
		return models.Identity{}, wrap.Error(ctx, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidRole))
	}

	return identity, nil
}
