// Package quality decides whether a portrait is usable on a badge.
package quality

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

const (
	// MinFaceRatio is the minimum face width and height relative to the image
	MinFaceRatio = 0.2
	// MaxCenterOffset bounds the distance between face center and image
	// center, per axis, relative to the image size
	MaxCenterOffset = 0.25
	// BrightnessMargin pads the face box before measuring light and cropping
	BrightnessMargin = 20
	MinBrightness    = 100.0
	MaxBrightness    = 210.0
)

// Evaluator detects the face of a portrait and grades it
type Evaluator struct {
	detector provider.FaceDetector
	logger   *slog.Logger
}

// NewEvaluator creates an Evaluator backed by detector
func NewEvaluator(detector provider.FaceDetector, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		detector: detector,
		logger:   logger.With("component", "quality"),
	}
}

// Evaluate grades the largest face the detector reports. With no face the
// verdict fails with a nil crop and no check runs. Detector errors are
// returned as is.
func (e *Evaluator) Evaluate(ctx context.Context, img image.Image) (*domain.QualityVerdict, error) {
	faces, err := e.detector.DetectFaces(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	if len(faces) == 0 {
		e.logger.DebugContext(ctx, "no face detected")
		return noFace(), nil
	}

	verdict := Assess(img, provider.Largest(faces))

	e.logger.DebugContext(ctx, "photo assessed",
		slog.Int("faces", len(faces)),
		slog.Bool("passed", verdict.Passed),
		slog.String("reason", verdict.Reason),
		slog.Bool("size", verdict.Checks.Size),
		slog.Bool("centered", verdict.Checks.Centered),
		slog.Bool("orientation", verdict.Checks.Orientation),
		slog.Float64("mean_brightness", verdict.Checks.MeanBrightness),
	)

	return verdict, nil
}

// Assess runs every check on face in a fixed order: size, centering,
// orientation, brightness. Each check runs even when an earlier one failed
// and the reported reason is the last failing one. The crop is the face box
// grown by BrightnessMargin, returned whatever the outcome.
func Assess(img image.Image, face provider.DetectedFace) *domain.QualityVerdict {
	bounds := img.Bounds()
	imgW, imgH := float64(bounds.Dx()), float64(bounds.Dy())
	box := face.BoundingBox

	region := imaging.Expand(box.Rect(bounds.Min), BrightnessMargin, bounds)
	crop, err := imaging.Crop(img, region)
	if err != nil {
		return noFace()
	}

	verdict := &domain.QualityVerdict{
		Passed:   true,
		Reason:   domain.MsgPhotoValid,
		FaceCrop: crop,
	}
	fail := func(reason string) {
		verdict.Passed = false
		verdict.Reason = reason
	}

	// 1. Size
	w, h := float64(box.Width), float64(box.Height)
	verdict.Checks.Size = w >= MinFaceRatio*imgW && h >= MinFaceRatio*imgH
	if !verdict.Checks.Size {
		fail(domain.MsgFaceTooSmall)
	}

	// 2. Centering
	cx := float64(box.X) + w/2
	cy := float64(box.Y) + h/2
	verdict.Checks.Centered = math.Abs(cx-imgW/2) <= MaxCenterOffset*imgW &&
		math.Abs(cy-imgH/2) <= MaxCenterOffset*imgH
	if !verdict.Checks.Centered {
		fail(domain.MsgFaceNotCentered)
	}

	// 3. Orientation
	ok, reason := CheckOrientation(face.Landmarks)
	verdict.Checks.Orientation = ok
	if !ok {
		fail(reason)
	}

	// 4. Brightness
	mean, _ := imaging.MeanLuminance(crop, crop.Bounds())
	verdict.Checks.MeanBrightness = mean
	verdict.Checks.Brightness = mean >= MinBrightness && mean <= MaxBrightness
	switch {
	case mean < MinBrightness:
		fail(domain.MsgTooDark)
	case mean > MaxBrightness:
		fail(domain.MsgOverexposed)
	}

	return verdict
}

func noFace() *domain.QualityVerdict {
	return &domain.QualityVerdict{Passed: false, Reason: domain.MsgNoFaceDetected}
}
