package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresStore keeps badge faces in the badge_faces table, one row per session
type PostgresStore struct {
	db  DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over db
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Save upserts the badge face of the session
func (s *PostgresStore) Save(ctx context.Context, sessionID string, face *BadgeFace, ttl time.Duration) error {
	query := `
		INSERT INTO badge_faces (session_id, image, width, height, stored_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE
		SET image = EXCLUDED.image,
		    width = EXCLUDED.width,
		    height = EXCLUDED.height,
		    stored_at = EXCLUDED.stored_at,
		    expires_at = EXCLUDED.expires_at
	`

	f := stamp(face, s.now(), ttl)
	_, err := s.db.Exec(ctx, query, sessionID, f.Image, f.Width, f.Height, f.StoredAt, f.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save badge face: %w", err)
	}
	return nil
}

// Load retrieves the badge face, deleting it when expired
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*BadgeFace, error) {
	query := `
		SELECT image, width, height, stored_at, expires_at
		FROM badge_faces
		WHERE session_id = $1
	`

	var f BadgeFace
	err := s.db.QueryRow(ctx, query, sessionID).Scan(&f.Image, &f.Width, &f.Height, &f.StoredAt, &f.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load badge face: %w", err)
	}

	if f.expired(s.now()) {
		_ = s.Delete(ctx, sessionID)
		return nil, ErrExpired
	}

	return &f, nil
}

// Delete removes the badge face of the session
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	query := `DELETE FROM badge_faces WHERE session_id = $1`
	if _, err := s.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("delete badge face: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// CleanupExpired removes all expired rows
func (s *PostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM badge_faces WHERE expires_at < NOW()`
	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("cleanup badge faces: %w", err)
	}
	return result.RowsAffected(), nil
}
