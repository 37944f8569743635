package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/session"
)

const (
	// DefaultMatchThreshold decides the match message from the distance
	DefaultMatchThreshold = 0.5
	DefaultSessionTTL     = 15 * time.Minute
	DefaultMaxImageBytes  = 10 << 20
)

type PhotoEvaluator interface {
	Evaluate(ctx context.Context, img image.Image) (*domain.QualityVerdict, error)
}

type DocumentLocator interface {
	FindFace(ctx context.Context, document []byte) (*domain.PageMatch, string, error)
}

type MatchAttemptRepositoryInterface interface {
	Create(ctx context.Context, attempt *domain.MatchAttempt) error
}

// BadgeService validates badge photos and matches the validated face against
// an identity document, keeping the face between both calls in a session store.
type BadgeService struct {
	evaluator PhotoEvaluator
	locator   DocumentLocator
	verifier  provider.FaceVerifier
	store     session.Store
	attempts  MatchAttemptRepositoryInterface
	audit     audit.Logger
	logger    *slog.Logger

	threshold     float64
	sessionTTL    time.Duration
	maxImageBytes int
	providerName  string
}

type Option func(*BadgeService)

// WithThreshold sets the distance under which faces are reported as matching
func WithThreshold(threshold float64) Option {
	return func(s *BadgeService) {
		s.threshold = threshold
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *BadgeService) {
		s.sessionTTL = ttl
	}
}

func WithMaxImageBytes(n int) Option {
	return func(s *BadgeService) {
		s.maxImageBytes = n
	}
}

// WithMatchAttempts records every match attempt. Recording is best effort.
func WithMatchAttempts(repo MatchAttemptRepositoryInterface) Option {
	return func(s *BadgeService) {
		s.attempts = repo
	}
}

func WithAuditLogger(l audit.Logger) Option {
	return func(s *BadgeService) {
		s.audit = l
	}
}

// WithProviderName labels audit events with the backend in use
func WithProviderName(name string) Option {
	return func(s *BadgeService) {
		s.providerName = name
	}
}

func NewBadgeService(
	evaluator PhotoEvaluator,
	locator DocumentLocator,
	verifier provider.FaceVerifier,
	store session.Store,
	logger *slog.Logger,
	opts ...Option,
) *BadgeService {
	s := &BadgeService{
		evaluator:     evaluator,
		locator:       locator,
		verifier:      verifier,
		store:         store,
		audit:         &audit.NoOpLogger{},
		logger:        logger.With("component", "badge_service"),
		threshold:     DefaultMatchThreshold,
		sessionTTL:    DefaultSessionTTL,
		maxImageBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidatePhoto evaluates a badge photo and stores its face crop under
// sessionID, issuing a new session id when empty. A photo without a face is
// not an error: the result is invalid and comparison is not possible.
func (s *BadgeService) ValidatePhoto(ctx context.Context, sessionID string, imageBytes []byte) (*domain.PhotoValidation, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if len(imageBytes) == 0 {
		return nil, domain.ErrInvalidImage.WithError(errors.New("empty image"))
	}
	if s.maxImageBytes > 0 && len(imageBytes) > s.maxImageBytes {
		return nil, domain.ErrInvalidImage.WithError(
			fmt.Errorf("%d bytes, maximum %d", len(imageBytes), s.maxImageBytes))
	}

	img, format, err := imaging.Decode(imageBytes)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	verdict, err := s.evaluator.Evaluate(ctx, img)
	if err != nil {
		s.logAudit(ctx, audit.Event{
			SessionID: sessionID,
			EventType: audit.EventPhotoValidated,
			Success:   false,
			Error:     err.Error(),
		})
		return nil, domain.ErrDetectionFailed.WithError(err)
	}

	// Each call replaces the session slot, so a photo without a face also
	// clears the crop of an earlier call.
	comparisonPossible := verdict.FaceCrop != nil
	if comparisonPossible {
		face, err := session.NewBadgeFace(verdict.FaceCrop)
		if err != nil {
			return nil, domain.ErrInternal.WithError(err)
		}
		if err := s.store.Save(ctx, sessionID, face, s.sessionTTL); err != nil {
			return nil, domain.ErrStoreUnavailable.WithError(err)
		}
	} else if err := s.store.Delete(ctx, sessionID); err != nil {
		return nil, domain.ErrStoreUnavailable.WithError(err)
	}

	result := &domain.PhotoValidation{
		SessionID:          sessionID,
		Valid:              verdict.Passed,
		Message:            verdict.Reason,
		ComparisonPossible: comparisonPossible,
	}
	if comparisonPossible {
		checks := verdict.Checks
		result.Checks = &checks
	}

	s.logger.InfoContext(ctx, "photo validated",
		slog.String("session_id", sessionID),
		slog.String("format", format),
		slog.Bool("valid", result.Valid),
		slog.Bool("comparison_possible", comparisonPossible),
	)
	s.logAudit(ctx, audit.Event{
		SessionID: sessionID,
		EventType: audit.EventPhotoValidated,
		Success:   true,
		Metadata: map[string]string{
			"valid":               strconv.FormatBool(result.Valid),
			"comparison_possible": strconv.FormatBool(comparisonPossible),
			"reason":              result.Message,
		},
	})

	return result, nil
}

// MatchFaces compares the stored badge face with the face found in the
// identity document. The stored face is consumed once a comparison result
// exists; earlier failures keep it so another document can be tried.
func (s *BadgeService) MatchFaces(ctx context.Context, sessionID string, document []byte) (*domain.SimilarityResult, error) {
	start := time.Now()

	// 1. Stored badge face
	if sessionID == "" {
		return nil, domain.ErrBadgeFaceMissing
	}
	stored, err := s.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, domain.ErrBadgeFaceMissing.WithError(err)
		}
		return nil, domain.ErrStoreUnavailable.WithError(err)
	}
	badgeFace, err := stored.Decode()
	if err != nil {
		return nil, domain.ErrInternal.WithError(err)
	}

	// 2. Document face
	match, message, err := s.locator.FindFace(ctx, document)
	if err != nil {
		s.logAudit(ctx, audit.Event{
			SessionID: sessionID,
			EventType: audit.EventDocumentScanned,
			Success:   false,
			Error:     err.Error(),
		})
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, domain.ErrDetectionFailed.WithError(err)
	}

	if match == nil {
		s.recordAttempt(ctx, &domain.MatchAttempt{
			SessionID: sessionID,
			Outcome:   domain.OutcomeNoFaceInDocument,
			LatencyMs: time.Since(start).Milliseconds(),
		})
		return &domain.SimilarityResult{Matched: false, Message: message}, nil
	}

	// 3. Comparison
	v, err := s.verifier.Verify(ctx, badgeFace, match.FaceCrop)
	if err != nil {
		outcome, appErr := domain.OutcomeVerifierError, domain.ErrVerifierUnavailable
		if errors.Is(err, provider.ErrNoFaceDetected) {
			outcome, appErr = domain.OutcomeComparisonFailed, domain.ErrComparisonFailed
		}
		s.recordAttempt(ctx, &domain.MatchAttempt{
			SessionID:  sessionID,
			PageNumber: match.PageNumber,
			Outcome:    outcome,
			LatencyMs:  time.Since(start).Milliseconds(),
		})
		s.logAudit(ctx, audit.Event{
			SessionID: sessionID,
			EventType: audit.EventFacesMatched,
			Success:   false,
			Error:     err.Error(),
		})
		return nil, appErr.WithError(err)
	}

	message = domain.MsgFacesDiffer
	if v.Distance < s.threshold {
		message = domain.MsgFacesMatch
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to consume badge face",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}

	latency := time.Since(start).Milliseconds()
	s.recordAttempt(ctx, &domain.MatchAttempt{
		SessionID:  sessionID,
		PageNumber: match.PageNumber,
		Matched:    v.Verified,
		Distance:   v.Distance,
		Threshold:  s.threshold,
		Outcome:    domain.OutcomeCompared,
		LatencyMs:  latency,
	})

	s.logger.InfoContext(ctx, "faces compared",
		slog.String("session_id", sessionID),
		slog.Int("page", match.PageNumber),
		slog.Bool("matched", v.Verified),
		slog.Float64("distance", v.Distance),
		slog.String("model", v.Model),
		slog.Int64("latency_ms", latency),
	)
	s.logAudit(ctx, audit.Event{
		SessionID: sessionID,
		EventType: audit.EventFacesMatched,
		Success:   true,
		Metadata: map[string]string{
			"matched":   strconv.FormatBool(v.Verified),
			"distance":  strconv.FormatFloat(v.Distance, 'f', 4, 64),
			"threshold": strconv.FormatFloat(s.threshold, 'f', 2, 64),
			"page":      strconv.Itoa(match.PageNumber),
			"model":     v.Model,
		},
	})

	return &domain.SimilarityResult{
		Matched:        v.Verified,
		Distance:       v.Distance,
		Threshold:      s.threshold,
		ModelThreshold: v.Threshold,
		Message:        message,
		PageNumber:     match.PageNumber,
		Compared:       true,
	}, nil
}

// Ready reports whether the session store is reachable
func (s *BadgeService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *BadgeService) recordAttempt(ctx context.Context, attempt *domain.MatchAttempt) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Create(context.WithoutCancel(ctx), attempt); err != nil {
		s.logger.WarnContext(ctx, "failed to record match attempt",
			slog.String("session_id", attempt.SessionID),
			slog.String("outcome", attempt.Outcome),
			slog.Any("error", err),
		)
	}
}

func (s *BadgeService) logAudit(ctx context.Context, event audit.Event) {
	if event.Provider == "" {
		event.Provider = s.providerName
	}
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to log audit event", slog.Any("error", err))
	}
}
