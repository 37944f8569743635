//go:build integration

package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/database"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "badgecheck_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/badgecheck_test?sslmode=disable", host, port.Port())

	_, err = database.Apply(ctx, dsn)
	require.NoError(t, err)

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(dsn))
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	return pool
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool := setupPostgres(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	face, err := NewBadgeFace(testCrop(40, 60))
	require.NoError(t, err)

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Save(ctx, testSession, face, time.Minute))

	loaded, err := store.Load(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, face.Image, loaded.Image)
	assert.Equal(t, 40, loaded.Width)

	// overwrite with an already expired entry
	require.NoError(t, store.Save(ctx, testSession, face, -time.Minute))
	deleted, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.Load(ctx, testSession)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, testSession))
}
