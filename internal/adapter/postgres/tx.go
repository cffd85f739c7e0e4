package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/trm"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// TxorDB returns the transaction stored in ctx by trm, or the pool.
func TxorDB(ctx context.Context, db *pgxpool.Pool) Querier {
	tx, ok := ctx.Value(trm.TxKey).(pgx.Tx)
	if !ok {
		return db
	}
	return tx
}

// TxManager runs work in a pgx transaction. A transaction that cannot begin or
// commit means the database is not serving, so those failures carry
// types.ErrStoreUnavailable; errors from the work pass through unchanged.
type TxManager struct {
	m *trm.Manager
}

func NewTxManager(db *pgxpool.Pool) *TxManager {
	return &TxManager{m: trm.New(db)}
}

func (t *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := t.m.Do(ctx, fn)
	if errors.Is(err, trm.ErrTx) && !errors.Is(err, types.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	return err
}
