package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a referenced diagram element does not exist
var ErrNotFound = errors.New("diagram element not found")

// DB wraps the SQLite database with semaphore-based exclusive access
type DB struct {
	db    *sql.DB
	mutex sync.Mutex
}

// NewDB creates a new database connection with exclusive access control.
// The path ":memory:" keeps the diagram in process memory only.
func NewDB(dbPath string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}

	// Verify connection works
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	// A single connection also keeps an in-memory database alive
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &DB{db: sqlDB}, nil
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:") {
		return ":memory:?_foreign_keys=on"
	}
	// Enable WAL mode and foreign keys via connection string
	return dbPath + "?_journal_mode=WAL&_foreign_keys=on"
}

// WithLock executes a function with exclusive database access
func (d *DB) WithLock(fn func() error) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// WithLockResult executes a function with exclusive database access and returns a result
func WithLockResult[T any](d *DB, fn func() (T, error)) (T, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return fn()
}

// withTx runs fn inside a transaction while holding the lock
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return d.WithLock(func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// tableExists checks if a table exists in the database
func (d *DB) tableExists(tableName string) (bool, error) {
	var count int
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
