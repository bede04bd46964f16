package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

const (
	maxSerializationRetries = 10
	serializationRetryDelay = 5 * time.Millisecond
	maxSerializationBackoff = 100 * time.Millisecond
)

// ExecuteRetryable retries fn while it fails with a serialization failure,
// up to a fixed number of attempts.
func ExecuteRetryable(fn func() error) error {
	_, err := retry.Retry(
		fn,
		retry.Limit(maxSerializationRetries),
		retry.Retriable(IsSerializationFailure),
		retry.BackoffWithJitter(backoff.BinaryExponential(serializationRetryDelay), maxSerializationBackoff, 0.1),
	)
	return err
}

// ExecuteInTx executes fn within a new DB transaction at the requested
// isolation level. The transaction is committed if fn succeeds, and rolled back
// otherwise.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		// We always need to execute a Rollback() so sql.DB releases the connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w", rollbackErr)
		}
		return err
	}
	return tx.Commit()
}
