// Package store implements the transactional embedded key-value storage
// underneath the session store and the cryptex registry.
//
// The backend is SQLite through the pure-Go modernc.org/sqlite driver, in
// WAL mode: readers observe a consistent snapshot while a single writer
// commits, and a transaction touching several keys (a record plus its
// secondary indices) becomes visible atomically or not at all.
//
// Records live in logical buckets inside one table keyed by (bucket, key);
// rowid order preserves insertion order for scans. One KV handle is
// constructed at startup and passed explicitly into every component that
// needs it — there is no package-level handle.
//
// Operations whose caller supplies no deadline run under the handle's
// configured timeout and fail with the timeout sentinel instead of hanging.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/metrics"
)

// migrations is an ordered list of SQL statements applied on open.
// Each entry is idempotent (IF NOT EXISTS) so re-running is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		bucket TEXT NOT NULL,
		key    TEXT NOT NULL,
		value  BLOB NOT NULL,
		PRIMARY KEY (bucket, key)
	)`,
}

// ErrStopScan stops a Scan early without reporting an error.
var ErrStopScan = errors.New("store: stop scan")

// KV is a transactional bucketed key-value store. It is safe for concurrent
// use; writers are serialized by the backend, readers see snapshots.
type KV struct {
	db      *sql.DB
	timeout time.Duration
	logger  *metrics.Logger
}

// Option configures a KV handle.
type Option func(*KV)

// WithTimeout sets the deadline applied to operations whose context has none.
func WithTimeout(d time.Duration) Option {
	return func(kv *KV) {
		kv.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *metrics.Logger) Option {
	return func(kv *KV) {
		kv.logger = l
	}
}

// Open opens (or creates) the store at path and runs migrations.
func Open(path string, opts ...Option) (*KV, error) {
	// The modernc driver takes pragmas in _pragma=name(value) form; the
	// mattn-style _journal/_busy_timeout parameters are silently ignored.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, constants.StoreBusyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, qerrors.NewStoreError("store.Open", path, fmt.Errorf("%w: %v", qerrors.ErrStore, err))
	}

	kv := &KV{
		db:      db,
		timeout: constants.DefaultStoreTimeoutSeconds * time.Second,
		logger:  metrics.NewLogger(metrics.WithLevel(metrics.LevelWarn)).Named("store"),
	}
	for _, opt := range opts {
		opt(kv)
	}

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close() //nolint:errcheck
			return nil, qerrors.NewStoreError("store.Open", path, fmt.Errorf("%w: migration: %v", qerrors.ErrStore, err))
		}
	}

	kv.logger.Debug("store opened", metrics.Fields{"path": path})
	return kv, nil
}

// Close releases database resources.
func (kv *KV) Close() error {
	return kv.db.Close()
}

// withDeadline applies the configured timeout when the caller set none.
func (kv *KV) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || kv.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, kv.timeout)
}

// View runs fn inside a read-only snapshot transaction.
func (kv *KV) View(ctx context.Context, fn func(*Tx) error) error {
	return kv.transact(ctx, true, fn)
}

// Update runs fn inside a writable transaction. All writes made by fn
// become visible atomically on commit, or not at all.
func (kv *KV) Update(ctx context.Context, fn func(*Tx) error) error {
	return kv.transact(ctx, false, fn)
}

func (kv *KV) transact(ctx context.Context, readOnly bool, fn func(*Tx) error) error {
	ctx, cancel := kv.withDeadline(ctx)
	defer cancel()

	sqlTx, err := kv.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return mapErr("store.Begin", "", err)
	}

	tx := &Tx{tx: sqlTx, ctx: ctx}
	if err := fn(tx); err != nil {
		sqlTx.Rollback() //nolint:errcheck
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapErr("store.Commit", "", err)
	}
	return nil
}

// Tx is a live transaction. It is only valid inside the View/Update
// closure that produced it.
type Tx struct {
	tx  *sql.Tx
	ctx context.Context
}

// Get returns the value stored under (bucket, key), or the not-found
// sentinel.
func (t *Tx) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`, bucket, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, qerrors.NewStoreError("kv.Get", key, qerrors.ErrNotFound)
		}
		return nil, mapErr("kv.Get", key, err)
	}
	return value, nil
}

// Put stores value under (bucket, key), replacing any existing value.
func (t *Tx) Put(bucket, key string, value []byte) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value`,
		bucket, key, value)
	if err != nil {
		return mapErr("kv.Put", key, err)
	}
	return nil
}

// Insert stores value under (bucket, key), failing with the duplicate
// sentinel if the key already exists. The existence check and the insert
// run inside the same serialized write transaction, so the pair is atomic.
func (t *Tx) Insert(bucket, key string, value []byte) error {
	var one int
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT 1 FROM kv WHERE bucket = ? AND key = ?`, bucket, key).Scan(&one)
	switch {
	case err == nil:
		return qerrors.NewStoreError("kv.Insert", key, qerrors.ErrDuplicate)
	case !errors.Is(err, sql.ErrNoRows):
		return mapErr("kv.Insert", key, err)
	}

	if _, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)`, bucket, key, value); err != nil {
		return mapErr("kv.Insert", key, err)
	}
	return nil
}

// Delete removes (bucket, key). Deleting an absent key fails with the
// not-found sentinel.
func (t *Tx) Delete(bucket, key string) error {
	res, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM kv WHERE bucket = ? AND key = ?`, bucket, key)
	if err != nil {
		return mapErr("kv.Delete", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("kv.Delete", key, err)
	}
	if n == 0 {
		return qerrors.NewStoreError("kv.Delete", key, qerrors.ErrNotFound)
	}
	return nil
}

// Scan visits every (key, value) pair in bucket in insertion order.
// Returning ErrStopScan from fn ends the scan without error.
func (t *Tx) Scan(bucket string, fn func(key string, value []byte) error) error {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT key, value FROM kv WHERE bucket = ? ORDER BY rowid`, bucket)
	if err != nil {
		return mapErr("kv.Scan", bucket, err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return mapErr("kv.Scan", bucket, err)
		}
		if err := fn(key, value); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return mapErr("kv.Scan", bucket, rows.Err())
}

// Get is a single-operation convenience wrapper around View.
func (kv *KV) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := kv.View(ctx, func(tx *Tx) error {
		var err error
		value, err = tx.Get(bucket, key)
		return err
	})
	return value, err
}

// Put is a single-operation convenience wrapper around Update.
func (kv *KV) Put(ctx context.Context, bucket, key string, value []byte) error {
	return kv.Update(ctx, func(tx *Tx) error {
		return tx.Put(bucket, key, value)
	})
}

// Delete is a single-operation convenience wrapper around Update.
func (kv *KV) Delete(ctx context.Context, bucket, key string) error {
	return kv.Update(ctx, func(tx *Tx) error {
		return tx.Delete(bucket, key)
	})
}

// mapErr classifies backend failures into the error taxonomy.
func mapErr(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return qerrors.NewStoreError(op, key, qerrors.ErrTimeout)
	case errors.Is(err, sql.ErrTxDone), errors.Is(err, sql.ErrConnDone):
		return qerrors.NewStoreError(op, key, qerrors.ErrClosed)
	default:
		return qerrors.NewStoreError(op, key, fmt.Errorf("%w: %v", qerrors.ErrStore, err))
	}
}
