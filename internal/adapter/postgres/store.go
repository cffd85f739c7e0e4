package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Store is the ride record store: rides plus the profiles attached to them.
type Store struct {
	*RideRepo
	*UserRepo
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		RideRepo: NewRideRepo(db),
		UserRepo: NewUserRepo(db),
	}
}
