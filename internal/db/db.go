package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	// ErrStorageUnavailable means the engine could not allocate or reach
	// local storage. Fatal to Open; surfaced to the user as "cannot save
	// locally".
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConstraintViolation means a unique index constraint was violated,
	// e.g. two listings sharing a normalized source URL.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrInvalidState means an operation hit a closed or mid-migration
	// handle. A contract violation, not an expected runtime condition.
	ErrInvalidState = errors.New("store handle not ready")
)

type handleState int

const (
	stateClosed handleState = iota
	stateMigrating
	stateReady
)

// Handle owns the single process-wide SQLite connection. Open is idempotent
// and safe to call from concurrent goroutines; they all resolve to the same
// underlying connection. Every access goes through DB, which refuses a closed
// or mid-migration handle.
type Handle struct {
	path string

	mu    sync.Mutex
	db    *sql.DB
	state handleState
}

func NewHandle(path string) *Handle {
	return &Handle{path: path}
}

// Open opens the database file (creating it if absent) and runs any pending
// schema migrations. Calling Open on an already-open handle is a no-op.
func (h *Handle) Open(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case stateReady:
		return nil
	case stateMigrating:
		return fmt.Errorf("%w: open during migration", ErrInvalidState)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", h.path)
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	sdb.SetMaxOpenConns(1)
	if err := sdb.PingContext(ctx); err != nil {
		_ = sdb.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	h.db = sdb
	h.state = stateMigrating
	if err := migrate(ctx, sdb); err != nil {
		_ = sdb.Close()
		h.db = nil
		h.state = stateClosed
		return fmt.Errorf("migrate: %w", err)
	}
	h.state = stateReady
	return nil
}

// DB returns the live connection, or ErrInvalidState when the handle is
// closed or still migrating.
func (h *Handle) DB() (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateReady {
		return nil, ErrInvalidState
	}
	return h.db, nil
}

// Close releases the connection. Safe to call twice.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == stateClosed {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	h.state = stateClosed
	return err
}

// SchemaVersion reads the persisted schema version. Mostly useful to tests.
func (h *Handle) SchemaVersion(ctx context.Context) (int, error) {
	sdb, err := h.DB()
	if err != nil {
		return 0, err
	}
	var v int
	if err := sdb.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// WrapErr maps engine-level failures onto the store error taxonomy. Errors it
// does not recognize pass through unchanged.
func WrapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case strings.Contains(msg, "database or disk is full"),
		strings.Contains(msg, "unable to open database"):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
