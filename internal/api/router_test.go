package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

type stubService struct{}

func (stubService) ValidatePhoto(context.Context, string, []byte) (*domain.PhotoValidation, error) {
	return nil, domain.ErrInvalidImage
}

func (stubService) MatchFaces(context.Context, string, []byte) (*domain.SimilarityResult, error) {
	return nil, domain.ErrBadgeFaceMissing
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_HealthWithoutDependencies(t *testing.T) {
	r := NewRouter(testLogger(), nil, Config{})
	r.Setup()
	defer r.stopWorkers()

	resp, err := r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/v1/faces/attempts", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRouter_ReadyReflectsStore(t *testing.T) {
	deps := &Dependencies{
		Service: stubService{},
		Ready:   func(context.Context) error { return errors.New("down") },
	}
	r := NewRouter(testLogger(), deps, Config{})
	r.Setup()
	defer r.stopWorkers()

	resp, err := r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestRouter_RateLimitsV1(t *testing.T) {
	deps := &Dependencies{Service: stubService{}}
	r := NewRouter(testLogger(), deps, Config{RateLimitMax: 2, RateLimitWindow: time.Minute})
	r.Setup()
	defer r.stopWorkers()

	for i := 0; i < 2; i++ {
		resp, err := r.App().Test(httptest.NewRequest("POST", "/v1/faces/match", nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	}

	resp, err := r.App().Test(httptest.NewRequest("POST", "/v1/faces/match", nil))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])

	// health is not rate limited
	resp, err = r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRouter_BodyLimitCoversDocuments(t *testing.T) {
	r := NewRouter(testLogger(), nil, Config{})
	assert.Equal(t, 21<<20, r.App().Config().BodyLimit)
}
