// Package sqlite implements the storage interface on SQLite.
//
// The original deployment of this data model targets a document store;
// here collections become tables, the property arrays become child tables
// joined on the property id, and the graph-lookup aggregations become
// recursive CTEs. Multi-record changes run in IMMEDIATE transactions so
// concurrent writers serialise instead of deadlocking, and the no-op
// self-update write-lock pattern carries over unchanged.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/beamtime/ims/internal/debug"
	"github.com/beamtime/ims/internal/errs"
	"github.com/beamtime/ims/internal/storage"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const defaultMaxTrailLength = 5

// querier is satisfied by *sql.DB and *sql.Conn, letting every operation
// run either standalone or inside an open transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ops carries the operation set shared by the storage handle and open
// transactions. All Transaction methods are defined on it.
type ops struct {
	q        querier
	maxTrail int
}

// SQLiteStorage implements storage.Storage backed by a SQLite database.
type SQLiteStorage struct {
	ops
	db   *sql.DB
	path string
}

// sqliteTx implements storage.Transaction over a single connection with
// an open IMMEDIATE transaction.
type sqliteTx struct {
	ops
}

var _ storage.Storage = (*SQLiteStorage)(nil)
var _ storage.Transaction = (*sqliteTx)(nil)

// New opens (creating if needed) the database at cfg.Path and ensures the
// schema and migrations are applied. Schema initialisation is guarded by
// a file lock so that concurrent processes opening the same database do
// not race on DDL.
func New(ctx context.Context, cfg storage.Config) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	maxTrail := cfg.MaxTrailLength
	if maxTrail < 2 {
		maxTrail = defaultMaxTrailLength
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + cfg.Path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(10000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(ctx, db, cfg.Path); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStorage{db: db, path: cfg.Path}
	s.ops = ops{q: db, maxTrail: maxTrail}
	return s, nil
}

// initSchema applies the base schema and any pending migrations under a
// cross-process file lock.
func initSchema(ctx context.Context, db *sql.DB, path string) error {
	lock := flock.New(path + ".init.lock")
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire init lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire init lock for %s", path)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		return err
	}
	return nil
}

// RunInTransaction executes fn within a BEGIN IMMEDIATE transaction on a
// dedicated connection. Commit on nil return, rollback on error or panic.
func (s *SQLiteStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// IMMEDIATE acquires the write lock up front; a concurrent holder
	// surfaces as SQLITE_BUSY here, which translates to write-conflict.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return translateErr("begin transaction", err)
	}

	committed := false
	defer func() {
		if p := recover(); p != nil {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
			panic(p)
		}
		if !committed {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		}
	}()

	tx := &sqliteTx{ops: ops{q: conn, maxTrail: s.maxTrail}}
	if err := fn(tx); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return translateErr("commit transaction", err)
	}
	committed = true
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// UnderlyingDB returns the underlying *sql.DB. Exposed for migrations and
// diagnostics; direct access bypasses the storage layer.
func (s *SQLiteStorage) UnderlyingDB() *sql.DB {
	return s.db
}

// exists runs an EXISTS check for the given query, which must select a
// single boolean-ish column.
func (o ops) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var n int
	err := o.q.QueryRowContext(ctx, query, args...).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translateErr("existence check", err)
	}
	return n != 0, nil
}

// requireRow converts sql.ErrNoRows into a missing-record error naming
// the entity.
func requireRow(err error, entity, id string) error {
	if err == sql.ErrNoRows {
		return errs.Newf(errs.MissingRecord, "%s not found: %s", entity, id)
	}
	return err
}

// logIntegrity records a database-integrity condition before surfacing
// it. These are exceptional and must always leave a trace.
func logIntegrity(msg string) {
	debug.Logf("INTEGRITY: %s", msg)
}
