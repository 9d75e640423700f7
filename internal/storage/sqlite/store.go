// Package sqlite provides a SQLite-backed room snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"courtpiece/internal/domain"
	"courtpiece/internal/ports"
	"courtpiece/internal/storage/sqlite/migrations"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists one JSON snapshot row per room.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ ports.SnapshotStore = (*Store)(nil)

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ReadSnapshot(ctx context.Context, roomID string) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		version int64
		payload []byte
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT version, payload FROM room_snapshots WHERE room_id = ?`, roomID,
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room snapshot: %w", err)
	}

	snap := domain.NewSnapshot()
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, fmt.Errorf("decode room snapshot %s: %w", roomID, err)
	}
	snap.Version = version
	return snap, nil
}

func (s *Store) WriteSnapshot(ctx context.Context, roomID string, snap *domain.Snapshot, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode room snapshot: %w", err)
	}
	updatedAt := s.now().UTC().UnixMilli()

	if expectedVersion == 0 {
		_, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO room_snapshots (room_id, version, payload, updated_at) VALUES (?, ?, ?, ?)`,
			roomID, snap.Version, payload, updatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: room %s already exists", ports.ErrVersionMismatch, roomID)
		}
		if err != nil {
			return fmt.Errorf("insert room snapshot: %w", err)
		}
		return nil
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE room_snapshots SET version = ?, payload = ?, updated_at = ? WHERE room_id = ? AND version = ?`,
		snap.Version, payload, updatedAt, roomID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update room snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: room %s is not at version %d", ports.ErrVersionMismatch, roomID, expectedVersion)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
