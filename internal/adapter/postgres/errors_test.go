package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestStoreError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, types.ErrNotFound},
		{"event for missing ride", &pgconn.PgError{Code: "23503"}, types.ErrRideNotFound},
		{"active passenger", &pgconn.PgError{Code: "23505", ConstraintName: constraintActivePassenger}, types.ErrActiveRideExist},
		{"busy driver", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505", ConstraintName: constraintActiveDriver}), types.ErrDriverBusy},
		{"check violation", &pgconn.PgError{Code: "23514"}, types.ErrInvalidInput},
		{"connection", errors.New("dial tcp: connection refused"), types.ErrStoreUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := storeError("op", tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("storeError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}

	if storeError("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if errors.Is(storeError("op", &pgconn.PgError{Code: "23505", ConstraintName: constraintActiveDriver}), types.ErrStoreUnavailable) {
		t.Fatal("constraint violations are not availability problems")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("no migrations embedded: %v", err)
	}

	content, err := migrationFS.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{constraintActivePassenger, constraintActiveDriver, "GEOGRAPHY", "ride_events", "comment_by_passenger", "comment_by_driver"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("schema is missing %s", want)
		}
	}
}
