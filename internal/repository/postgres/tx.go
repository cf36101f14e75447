package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/metrics"
)

// SQLSTATE codes the repositories react to
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
)

// TxOptions configures how TxRunner begins and retries transactions
type TxOptions struct {
	Isolation   sql.IsolationLevel
	MaxAttempts int
	Backoff     time.Duration
}

// TxOptionsFromConfig translates the DB_TX_* settings
func TxOptionsFromConfig(cfg config.TxConfig) TxOptions {
	isolation := sql.LevelReadCommitted
	if cfg.Isolation == "serializable" {
		isolation = sql.LevelSerializable
	}
	return TxOptions{
		Isolation:   isolation,
		MaxAttempts: cfg.MaxRetries,
		Backoff:     cfg.RetryBackoff,
	}
}

// TxRunner executes functions inside a transaction and re-runs them when
// PostgreSQL aborts the transaction with a serialization failure or deadlock.
type TxRunner struct {
	db    *sqlx.DB
	opts  TxOptions
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTxRunner creates a transaction runner
func NewTxRunner(db *sqlx.DB, opts TxOptions) *TxRunner {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &TxRunner{db: db, opts: opts, sleep: sleepContext}
}

// Run calls fn in a transaction and commits when it returns nil.
// fn must be safe to call more than once.
func (r *TxRunner) Run(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	backoff := r.opts.Backoff

	for attempt := 1; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}

		if !isSerializationFailure(err) {
			return classifyError(err)
		}
		if attempt >= r.opts.MaxAttempts {
			return fmt.Errorf("%w: transaction aborted after %d attempts: %w", domain.ErrConflict, attempt, err)
		}

		metrics.TxRetries.Inc()
		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: r.opts.Isolation})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}

// classifyError maps driver failures onto domain errors, keeping the original in the chain
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		domain.ErrNotFound, domain.ErrAlreadyExists, domain.ErrInvalidInput,
		domain.ErrConflict, domain.ErrHasChildren, domain.ErrUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pqErr.Constraint)
		case pqErr.Code == codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Constraint)
		case pqErr.Code.Class() == "08",
			pqErr.Code == codeAdminShutdown,
			pqErr.Code == codeCrashShutdown,
			pqErr.Code == codeCannotConnectNow:
			return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}

	return err
}
