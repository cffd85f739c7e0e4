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

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

// SaveProfile inserts or replaces the public profile of a user.
func (r *UserRepo) SaveProfile(ctx context.Context, p models.Profile) (err error) {
	const op = "UserRepo.SaveProfile"
	defer func(start time.Time) { observe("user_save", start, err) }(time.Now())

	const q = `
		INSERT INTO users (id, role, name, phone, rating)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET role = EXCLUDED.role, name = EXCLUDED.name, phone = EXCLUDED.phone,
			rating = EXCLUDED.rating, updated_at = now();`

	_, err = TxorDB(ctx, r.db).Exec(ctx, q, p.ID, p.Role, p.Name, p.Phone, p.Rating)
	return storeError(op, err)
}

func (r *UserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (_ *models.Profile, err error) {
	const op = "UserRepo.GetProfile"
	defer func(start time.Time) { observe("user_get", start, err) }(time.Now())

	const q = `SELECT id, role, name, phone, rating FROM users WHERE id = $1;`

	var p models.Profile
	err = TxorDB(ctx, r.db).QueryRow(ctx, q, userID).Scan(&p.ID, &p.Role, &p.Name, &p.Phone, &p.Rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		return nil, storeError(op, err)
	}
	return &p, nil
}
