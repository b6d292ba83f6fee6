// Package db stores the Flow snapshot in a relational database.
// SQLite is used for local installs and PostgreSQL when a
// DATABASE_URL is configured. Both implement store.Store.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// postgresLockKey identifies the advisory lock that serializes
// writers across processes sharing one PostgreSQL database.
const postgresLockKey = 0x666c6f77

// DB manages a write connection and a read pool.
type DB struct {
	writer   *sql.DB
	reader   *sql.DB
	dialect  dialect
	mu       sync.Mutex // serializes writes
	notifier *store.Notifier
}

var _ store.Store = (*DB)(nil)

// makeDSN builds a SQLite connection string with shared pragmas.
func makeDSN(path string, readOnly bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "ON")
	if readOnly {
		params.Set("mode", "ro")
	} else {
		params.Set("_synchronous", "NORMAL")
	}
	return path + "?" + params.Encode()
}

// Open creates or opens a SQLite database at the given path.
// It configures WAL mode and returns a DB with separate writer
// and reader connections.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	writer, err := sql.Open("sqlite3", makeDSN(path, false))
	if err != nil {
		return nil, fmt.Errorf("opening writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	// The schema must exist before a read-only connection can
	// open the file.
	db := &DB{writer: writer, dialect: sqlite, notifier: store.NewNotifier()}
	if err := db.init(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	reader, err := sql.Open("sqlite3", makeDSN(path, true))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening reader: %w", err)
	}
	reader.SetMaxOpenConns(4)
	db.reader = reader
	return db, nil
}

// OpenPostgres connects to the PostgreSQL database at dsn. One
// pool serves both reads and writes.
func OpenPostgres(dsn string) (*DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	pool.SetMaxOpenConns(8)
	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	db := &DB{
		writer:   pool,
		reader:   pool,
		dialect:  postgres,
		notifier: store.NewNotifier(),
	}
	if err := db.init(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// init creates the tables and seeds an empty document on first
// use.
func (db *DB) init() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, err := db.writer.Exec(schemaSQL); err != nil {
		return err
	}

	var n int
	if err := db.writer.QueryRow(
		"SELECT count(*) FROM documents",
	).Scan(&n); err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}
	if n > 0 {
		return nil
	}
	return db.update(context.Background(), func(tx *sql.Tx) error {
		return writeSnapshot(tx, db.dialect, model.New())
	})
}

// Close closes both writer and reader connections.
func (db *DB) Close() error {
	db.notifier.Close()
	if db.reader == nil || db.reader == db.writer {
		return db.writer.Close()
	}
	return errors.Join(db.writer.Close(), db.reader.Close())
}

// update executes fn within a transaction on the writer. The
// transaction is committed if fn returns nil, rolled back
// otherwise. Callers hold db.mu.
func (db *DB) update(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if db.dialect == postgres {
		if _, err := tx.ExecContext(
			ctx, "SELECT pg_advisory_xact_lock($1)", postgresLockKey,
		); err != nil {
			return fmt.Errorf("acquiring write lock: %w", err)
		}
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Load reads the whole snapshot from the read pool.
func (db *DB) Load(ctx context.Context) (*model.Snapshot, error) {
	r := db.reader
	if r == nil {
		r = db.writer
	}
	return readSnapshot(ctx, r, db.dialect)
}

// Update reads the snapshot inside a write transaction, applies fn
// and writes back only the rows that changed.
func (db *DB) Update(
	ctx context.Context, fn func(*model.Snapshot) error,
) (*model.Snapshot, error) {
	db.mu.Lock()
	var out *model.Snapshot
	err := db.update(ctx, func(tx *sql.Tx) error {
		s, err := readSnapshot(ctx, tx, db.dialect)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		if err := writeSnapshot(tx, db.dialect, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	db.mu.Unlock()
	if err != nil {
		return nil, err
	}
	db.notifier.Publish(store.SourceCommit)
	return out.Clone(), nil
}

// Replace overwrites every stored row with s.
func (db *DB) Replace(ctx context.Context, s *model.Snapshot) error {
	db.mu.Lock()
	err := db.update(ctx, func(tx *sql.Tx) error {
		return writeSnapshot(tx, db.dialect, s.Clone())
	})
	db.mu.Unlock()
	if err != nil {
		return err
	}
	db.notifier.Publish(store.SourceCommit)
	return nil
}

func (db *DB) Subscribe() (<-chan store.Change, func()) {
	return db.notifier.Subscribe()
}
