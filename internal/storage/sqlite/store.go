// Package sqlite implements the storage interfaces on a SQLite database.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashfall-games/fatetable/internal/watch"
)

//go:embed schema.sql
var schema string

// Publisher receives a change notification after every committed mutation.
type Publisher interface {
	Publish(change watch.Change)
}

// Store provides a SQLite-backed store implementing all storage interfaces.
type Store struct {
	sqlDB     *sql.DB
	publisher Publisher
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher wires a change publisher; every committed mutation emits one
// change on it.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens a SQLite store at the provided path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single pooled connection serializes access
	// instead of surfacing SQLITE_BUSY to callers.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Close closes the underlying SQLite database. Nil-safe so callers can defer
// it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) publish(collection watch.Collection, op watch.Op, id string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(watch.Change{
		Collection: collection,
		Op:         op,
		ID:         id,
		At:         s.now().UTC(),
	})
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
