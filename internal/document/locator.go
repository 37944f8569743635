// Package document finds the holder's face in an identity document.
package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

const (
	// DefaultMargin pads the document face before cropping
	DefaultMargin      = 60
	DefaultMaxPages    = 10
	DefaultMaxBytes    = 20 << 20
	DefaultPageTimeout = 20 * time.Second
)

// LocatorConfig bounds the work done per document
type LocatorConfig struct {
	Margin      int
	MaxPages    int
	MaxBytes    int
	PageTimeout time.Duration
	// RequireScanned rejects documents with extractable text
	RequireScanned bool
}

// DefaultLocatorConfig returns the default bounds, scanned check disabled
func DefaultLocatorConfig() LocatorConfig {
	return LocatorConfig{
		Margin:      DefaultMargin,
		MaxPages:    DefaultMaxPages,
		MaxBytes:    DefaultMaxBytes,
		PageTimeout: DefaultPageTimeout,
	}
}

// Locator scans document pages in order and stops at the first page with a
// usable face.
type Locator struct {
	detector   provider.FaceDetector
	rasterizer Rasterizer
	prober     TextProber
	config     LocatorConfig
	logger     *slog.Logger
}

// NewLocator creates a Locator. prober may be nil when RequireScanned is off.
func NewLocator(detector provider.FaceDetector, rasterizer Rasterizer, prober TextProber, config LocatorConfig, logger *slog.Logger) *Locator {
	return &Locator{
		detector:   detector,
		rasterizer: rasterizer,
		prober:     prober,
		config:     config,
		logger:     logger.With("component", "document"),
	}
}

// FindFace returns the face crop of the first page holding one, with a
// message naming the page. A document without any face is not an error: the
// match is nil and the message says so. Malformed documents produce domain
// errors. A detector failure stops the scan and is returned wrapped.
func (l *Locator) FindFace(ctx context.Context, data []byte) (*domain.PageMatch, string, error) {
	// 1. Input bounds
	if len(data) == 0 {
		return nil, "", domain.ErrInvalidDocument.WithError(errors.New("empty document"))
	}
	if l.config.MaxBytes > 0 && len(data) > l.config.MaxBytes {
		return nil, "", domain.ErrDocumentTooLarge.WithError(
			fmt.Errorf("%d bytes, maximum %d", len(data), l.config.MaxBytes))
	}

	// 2. Scanned-only guard
	if l.config.RequireScanned && l.prober != nil {
		hasText, err := l.prober.HasText(ctx, data)
		if err != nil {
			return nil, "", domain.ErrInvalidDocument.WithError(err)
		}
		if hasText {
			return nil, "", domain.ErrDocumentNotScanned
		}
	}

	// 3. Rasterize
	pages, err := l.rasterizer.Rasterize(ctx, data)
	if err != nil {
		if errors.Is(err, ErrTooManyPages) {
			return nil, "", domain.ErrDocumentTooLarge.WithError(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", domain.ErrInvalidDocument.WithError(err)
	}
	if len(pages) == 0 {
		return nil, "", domain.ErrEmptyDocument
	}
	if l.config.MaxPages > 0 && len(pages) > l.config.MaxPages {
		return nil, "", domain.ErrDocumentTooLarge.WithError(
			fmt.Errorf("%w: %d pages, maximum %d", ErrTooManyPages, len(pages), l.config.MaxPages))
	}

	// 4. Scan pages in order
	for i, page := range pages {
		pageNumber := i + 1

		faces, err := l.detectPage(ctx, page)
		if err != nil {
			return nil, "", fmt.Errorf("page %d: %w", pageNumber, err)
		}
		if len(faces) == 0 {
			continue
		}

		best := provider.Largest(faces)
		box := best.BoundingBox
		box.X = max(box.X, 0)
		box.Y = max(box.Y, 0)

		bounds := page.Bounds()
		region := imaging.Expand(box.Rect(bounds.Min), l.config.Margin, bounds)
		crop, err := imaging.Crop(page, region)
		if err != nil {
			l.logger.DebugContext(ctx, "degenerate face box skipped", slog.Int("page", pageNumber))
			continue
		}

		message := domain.FaceOnPageMessage(pageNumber)
		l.logger.InfoContext(ctx, "face found in document",
			slog.Int("page", pageNumber),
			slog.Int("pages", len(pages)),
			slog.Int("faces_on_page", len(faces)),
		)
		return &domain.PageMatch{FaceCrop: crop, PageNumber: pageNumber, Message: message}, message, nil
	}

	l.logger.InfoContext(ctx, "no face found in document", slog.Int("pages", len(pages)))
	return nil, domain.MsgNoFaceInDocument, nil
}

func (l *Locator) detectPage(ctx context.Context, page image.Image) ([]provider.DetectedFace, error) {
	if l.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.PageTimeout)
		defer cancel()
	}
	return l.detector.DetectFaces(ctx, page)
}
