package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

// PgxPool is the subset of pgxpool.Pool used by repositories (pgxmock implements it too)
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// MatchAttemptRepositoryInterface defines operations for match attempt auditing
type MatchAttemptRepositoryInterface interface {
	Create(ctx context.Context, attempt *domain.MatchAttempt) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.MatchAttempt, error)
}
