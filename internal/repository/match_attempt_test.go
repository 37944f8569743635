package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

const testSessionID = "5b7f3c2a-1e4d-4c8b-9f6a-2d3e4f5a6b7c"

func TestMatchAttemptRepository_Create(t *testing.T) {
	attemptID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		attempt   *domain.MatchAttempt
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   bool
	}{
		{
			name: "compared attempt",
			attempt: &domain.MatchAttempt{
				ID:         attemptID,
				SessionID:  testSessionID,
				PageNumber: 2,
				Matched:    true,
				Distance:   0.21,
				Threshold:  0.68,
				Outcome:    domain.OutcomeCompared,
				LatencyMs:  340,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"created_at"}).AddRow(now)

				mock.ExpectQuery(`INSERT INTO match_attempts`).
					WithArgs(attemptID, testSessionID, 2, true, 0.21, 0.68, domain.OutcomeCompared, int64(340)).
					WillReturnRows(rows)
			},
		},
		{
			name: "attempt with auto-generated id",
			attempt: &domain.MatchAttempt{
				SessionID: testSessionID,
				Outcome:   domain.OutcomeNoFaceInDocument,
				LatencyMs: 90,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows([]string{"created_at"}).AddRow(now)

				mock.ExpectQuery(`INSERT INTO match_attempts`).
					WithArgs(pgxmock.AnyArg(), testSessionID, 0, false, 0.0, 0.0, domain.OutcomeNoFaceInDocument, int64(90)).
					WillReturnRows(rows)
			},
		},
		{
			name: "database error",
			attempt: &domain.MatchAttempt{
				SessionID: testSessionID,
				Outcome:   domain.OutcomeVerifierError,
			},
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO match_attempts`).
					WithArgs(
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
						pgxmock.AnyArg(),
					).
					WillReturnError(errors.New("database unavailable"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewMatchAttemptRepository(mock)
			err = repo.Create(context.Background(), tt.attempt)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "create match attempt")
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, tt.attempt.ID)
				assert.False(t, tt.attempt.CreatedAt.IsZero())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMatchAttemptRepository_ListBySession(t *testing.T) {
	columns := []string{"id", "session_id", "page_number", "matched", "distance", "threshold", "outcome", "latency_ms", "created_at"}
	now := time.Now()
	first := uuid.New()
	second := uuid.New()

	tests := []struct {
		name      string
		limit     int
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantLen   int
		wantErr   bool
	}{
		{
			name:  "two attempts",
			limit: 10,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(columns).
					AddRow(second, testSessionID, 1, false, 0.9, 0.68, domain.OutcomeCompared, int64(200), now).
					AddRow(first, testSessionID, 0, false, 0.0, 0.0, domain.OutcomeNoFaceInDocument, int64(80), now.Add(-time.Minute))

				mock.ExpectQuery(`SELECT id, session_id, page_number, matched, distance, threshold, outcome, latency_ms, created_at FROM match_attempts`).
					WithArgs(testSessionID, 10).
					WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name:  "default limit",
			limit: 0,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, session_id`).
					WithArgs(testSessionID, defaultListLimit).
					WillReturnRows(pgxmock.NewRows(columns))
			},
			wantLen: 0,
		},
		{
			name:  "query error",
			limit: 10,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT id, session_id`).
					WithArgs(testSessionID, 10).
					WillReturnError(errors.New("database unavailable"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewMatchAttemptRepository(mock)
			attempts, err := repo.ListBySession(context.Background(), testSessionID, tt.limit)

			if tt.wantErr {
				assert.ErrorContains(t, err, "list match attempts")
			} else {
				require.NoError(t, err)
				assert.Len(t, attempts, tt.wantLen)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMatchAttemptRepository_ListBySessionOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "session_id", "page_number", "matched", "distance", "threshold", "outcome", "latency_ms", "created_at"}).
		AddRow(id, testSessionID, 3, true, 0.12, 0.68, domain.OutcomeCompared, int64(410), now)
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WithArgs(testSessionID, 1).
		WillReturnRows(rows)

	attempts, err := NewMatchAttemptRepository(mock).ListBySession(context.Background(), testSessionID, 1)

	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, id, attempts[0].ID)
	assert.Equal(t, 3, attempts[0].PageNumber)
	assert.True(t, attempts[0].Matched)
	assert.Equal(t, domain.OutcomeCompared, attempts[0].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
