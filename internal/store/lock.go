package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// RunLock serializes all state-mutating operations for one run. Locks are
// per-run and never nested, so blocking acquisition cannot deadlock.
type RunLock interface {
	Lock() error
	Unlock() error
}

// memoryLock covers the single-process memory backend.
type memoryLock struct {
	mu sync.Mutex
}

func (l *memoryLock) Lock() error {
	l.mu.Lock()
	return nil
}

func (l *memoryLock) Unlock() error {
	l.mu.Unlock()
	return nil
}

// fileLock combines an in-process mutex with an OS advisory lock on the
// run's sentinel lock file, so multiple server processes sharing one
// directory tree exclude each other as well. flock blocks in the kernel; no
// sleep-and-retry polling.
type fileLock struct {
	mu    sync.Mutex
	flock *flock.Flock
}

func newFileLock(runDir string) (*fileLock, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &fileLock{flock: flock.New(filepath.Join(runDir, ".lock"))}, nil
}

func (l *fileLock) Lock() error {
	l.mu.Lock()
	if err := l.flock.Lock(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("acquire run lock: %w", err)
	}
	return nil
}

func (l *fileLock) Unlock() error {
	err := l.flock.Unlock()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// mysqlLock uses MySQL named locks (GET_LOCK) held on a dedicated
// connection, so servers pointing at the same database exclude each other.
type mysqlLock struct {
	mu   sync.Mutex
	db   *sql.DB
	name string
	conn *sql.Conn
}

func newMySQLLock(db *sql.DB, runID string) *mysqlLock {
	return &mysqlLock{db: db, name: "parwrk/" + runID}
}

func (l *mysqlLock) Lock() error {
	l.mu.Lock()

	conn, err := l.db.Conn(context.Background())
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("acquire run lock connection: %w", err)
	}

	var got int
	if err := conn.QueryRowContext(context.Background(), "SELECT GET_LOCK(?, -1)", l.name).Scan(&got); err != nil {
		conn.Close()
		l.mu.Unlock()
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if got != 1 {
		conn.Close()
		l.mu.Unlock()
		return fmt.Errorf("acquire run lock %q: not granted", l.name)
	}

	l.conn = conn
	return nil
}

func (l *mysqlLock) Unlock() error {
	conn := l.conn
	l.conn = nil

	var err error
	if conn != nil {
		_, err = conn.ExecContext(context.Background(), "SELECT RELEASE_LOCK(?)", l.name)
		conn.Close()
	}
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
