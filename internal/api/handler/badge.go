package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
)

const (
	// SessionHeader carries the session id issued by photo validation
	SessionHeader = "X-Session-ID"
	// SessionCookie is the cookie fallback for SessionHeader
	SessionCookie = "badge_session"

	defaultMaxImageSize    = 10 * 1024 * 1024 // 10MB
	defaultMaxDocumentSize = 20 * 1024 * 1024 // 20MB
	defaultAttemptsLimit   = 20
	maxAttemptsLimit       = 100
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var validDocumentTypes = map[string]bool{
	"application/pdf": true,
}

// BadgeService is the use case layer behind the badge endpoints
type BadgeService interface {
	ValidatePhoto(ctx context.Context, sessionID string, imageBytes []byte) (*domain.PhotoValidation, error)
	MatchFaces(ctx context.Context, sessionID string, documentBytes []byte) (*domain.SimilarityResult, error)
}

// AttemptLister lists the match attempts recorded for a session
type AttemptLister interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.MatchAttempt, error)
}

// BadgeConfig holds upload limits and cookie settings
type BadgeConfig struct {
	MaxImageSize    int
	MaxDocumentSize int
	SessionTTL      time.Duration
	SecureCookie    bool
}

// BadgeHandler handles photo validation and face matching requests
type BadgeHandler struct {
	service  BadgeService
	attempts AttemptLister
	config   BadgeConfig
	logger   *slog.Logger
}

// NewBadgeHandler creates a BadgeHandler. attempts may be nil, in which case
// the attempts endpoint returns an empty list.
func NewBadgeHandler(service BadgeService, attempts AttemptLister, config BadgeConfig, logger *slog.Logger) *BadgeHandler {
	if config.MaxImageSize <= 0 {
		config.MaxImageSize = defaultMaxImageSize
	}
	if config.MaxDocumentSize <= 0 {
		config.MaxDocumentSize = defaultMaxDocumentSize
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 15 * time.Minute
	}
	return &BadgeHandler{
		service:  service,
		attempts: attempts,
		config:   config,
		logger:   logger.With("component", "badge_handler"),
	}
}

// ValidatePhotoResponse response for photo validation
type ValidatePhotoResponse struct {
	SessionID          string                `json:"session_id"`
	Valid              bool                  `json:"valid"`
	Message            string                `json:"message"`
	ComparisonPossible bool                  `json:"comparison_possible"`
	Checks             *domain.QualityChecks `json:"checks,omitempty"`
}

// MatchResponse response for face matching. Distance, thresholds and page are
// omitted when the document held no face.
type MatchResponse struct {
	Match          bool     `json:"match"`
	Distance       *float64 `json:"distance,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
	ModelThreshold *float64 `json:"model_threshold,omitempty"`
	Message        string   `json:"message"`
	Page           int      `json:"page,omitempty"`
}

// AttemptsResponse response for the attempts listing
type AttemptsResponse struct {
	SessionID string                `json:"session_id"`
	Attempts  []domain.MatchAttempt `json:"attempts"`
}

// ValidatePhoto POST /v1/photos/validate - check a badge photo and keep its face
func (h *BadgeHandler) ValidatePhoto(c *fiber.Ctx) error {
	imageBytes, err := readUpload(c, "photo", validImageTypes, h.config.MaxImageSize, domain.ErrInvalidImage, domain.ErrInvalidImage)
	if err != nil {
		return err
	}

	result, err := h.service.ValidatePhoto(c.UserContext(), sessionID(c), imageBytes)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    result.SessionID,
		Path:     "/",
		MaxAge:   int(h.config.SessionTTL.Seconds()),
		Secure:   h.config.SecureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Set(SessionHeader, result.SessionID)

	return c.JSON(ValidatePhotoResponse{
		SessionID:          result.SessionID,
		Valid:              result.Valid,
		Message:            result.Message,
		ComparisonPossible: result.ComparisonPossible,
		Checks:             result.Checks,
	})
}

// MatchFaces POST /v1/faces/match - compare the stored badge face with an identity document
func (h *BadgeHandler) MatchFaces(c *fiber.Ctx) error {
	documentBytes, err := readUpload(c, "cin", validDocumentTypes, h.config.MaxDocumentSize, domain.ErrInvalidDocument, domain.ErrDocumentTooLarge)
	if err != nil {
		return err
	}

	result, err := h.service.MatchFaces(c.UserContext(), sessionID(c), documentBytes)
	if err != nil {
		return err
	}

	if !result.Compared {
		return c.JSON(MatchResponse{
			Match:   false,
			Message: result.Message,
		})
	}

	distance, threshold, modelThreshold := result.Distance, result.Threshold, result.ModelThreshold
	return c.JSON(MatchResponse{
		Match:          result.Matched,
		Distance:       &distance,
		Threshold:      &threshold,
		ModelThreshold: &modelThreshold,
		Message:        result.Message,
		Page:           result.PageNumber,
	})
}

// ListAttempts GET /v1/faces/attempts - match attempts recorded for the current session
func (h *BadgeHandler) ListAttempts(c *fiber.Ctx) error {
	sid := sessionID(c)
	if sid == "" {
		return domain.ErrValidationFailed.WithError(errors.New("session id is required"))
	}

	limit := c.QueryInt("limit", defaultAttemptsLimit)
	if limit <= 0 || limit > maxAttemptsLimit {
		return domain.ErrValidationFailed.WithError(errors.New("limit must be between 1 and 100"))
	}

	attempts := []domain.MatchAttempt{}
	if h.attempts != nil {
		found, err := h.attempts.ListBySession(c.UserContext(), sid, limit)
		if err != nil {
			h.logger.Error("failed to list match attempts", "error", err, "session_id", sid)
			return domain.ErrStoreUnavailable.WithError(err)
		}
		if found != nil {
			attempts = found
		}
	}

	return c.JSON(AttemptsResponse{
		SessionID: sid,
		Attempts:  attempts,
	})
}

// sessionID returns the session id from the header or the cookie. Values that
// are not uuids are ignored.
func sessionID(c *fiber.Ctx) string {
	for _, raw := range []string{c.Get(SessionHeader), c.Cookies(SessionCookie)} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	return ""
}

// readUpload extracts and validates a multipart file field
func readUpload(c *fiber.Ctx, field string, allowed map[string]bool, maxSize int, invalid, tooLarge *domain.AppError) ([]byte, error) {
	// 1. Extract file
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(errors.New(field + " file is required"))
	}

	// 2. Validate size
	if file.Size == 0 {
		return nil, invalid.WithError(errors.New(field + " file is empty"))
	}
	if file.Size > int64(maxSize) {
		return nil, tooLarge.WithError(errors.New(field + " file is too large"))
	}

	// 3. Validate Content-Type
	contentType := file.Header.Get("Content-Type")
	if !allowed[contentType] {
		return nil, invalid.WithError(errors.New("unsupported content type " + contentType))
	}

	// 4. Read bytes
	f, err := file.Open()
	if err != nil {
		return nil, invalid.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, invalid.WithError(err)
	}

	return data, nil
}
