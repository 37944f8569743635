package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

const defaultListLimit = 50

type MatchAttemptRepository struct {
	pool PgxPool
}

var _ MatchAttemptRepositoryInterface = (*MatchAttemptRepository)(nil)

func NewMatchAttemptRepository(pool PgxPool) *MatchAttemptRepository {
	return &MatchAttemptRepository{pool: pool}
}

func (r *MatchAttemptRepository) Create(ctx context.Context, a *domain.MatchAttempt) error {
	query := `
		INSERT INTO match_attempts (id, session_id, page_number, matched, distance, threshold, outcome, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		a.ID,
		a.SessionID,
		a.PageNumber,
		a.Matched,
		a.Distance,
		a.Threshold,
		a.Outcome,
		a.LatencyMs,
	).Scan(&a.CreatedAt)

	if err != nil {
		return fmt.Errorf("create match attempt: %w", err)
	}

	return nil
}

// ListBySession returns the newest attempts of a session first
func (r *MatchAttemptRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.MatchAttempt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, session_id, page_number, matched, distance, threshold, outcome, latency_ms, created_at
		FROM match_attempts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list match attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.MatchAttempt
	for rows.Next() {
		var a domain.MatchAttempt
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.PageNumber,
			&a.Matched,
			&a.Distance,
			&a.Threshold,
			&a.Outcome,
			&a.LatencyMs,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list match attempts: %w", err)
	}

	return attempts, nil
}
