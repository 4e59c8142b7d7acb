package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"
)

// withTx executes fn within a transaction, rolling back on error or panic.
// Postgres serialization failures and deadlocks surface as retryable
// concurrency errors.
func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return translateConcurrency(err)
	}

	if err := tx.Commit(); err != nil {
		return translateConcurrency(err)
	}
	return nil
}

// translateConcurrency maps serialization failures (40001) and deadlocks
// (40P01) to the retryable concurrency error so callers and clients know the
// operation is safe to retry as-is.
func translateConcurrency(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return apperrors.NewConcurrency("transaction conflicted with a concurrent update", err)
		}
	}
	return err
}

// lockKey takes a transaction-scoped advisory lock on an arbitrary string key.
// The lock releases on commit or rollback.
func lockKey(ctx context.Context, tx *sqlx.Tx, key string) error {
	_, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}

// lockLane serializes multi-row writes on one (department, status) lane.
// Reorders on different lanes never block each other.
func lockLane(ctx context.Context, tx *sqlx.Tx, department string, status string) error {
	return lockKey(ctx, tx, department+"|"+status)
}

// lockCheckIn serializes queue origination per check-in. Lane locks alone do
// not cover two originations of the same check-in into different departments,
// which take different lane locks and could both pass the duplicate check.
func lockCheckIn(ctx context.Context, tx *sqlx.Tx, checkInID uuid.UUID) error {
	return lockKey(ctx, tx, "checkin|"+checkInID.String())
}
