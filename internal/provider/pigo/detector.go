// Package pigo runs the pixel-intensity comparison cascade locally. It only
// reports bounding boxes, so it serves document pages and never grades badge
// photos, which need eye and nose landmarks.
package pigo

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

var ErrCascadeMissing = errors.New("pigo cascade file path not configured")

// Config holds the cascade parameters
type Config struct {
	CascadePath  string
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinScore discards detections with a lower cascade score
	MinScore float32
}

// DefaultConfig returns the parameters used by the pigo examples
func DefaultConfig() Config {
	return Config{
		MinSize:      20,
		MaxSize:      2000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinScore:     5.0,
	}
}

// Detector implements provider.FaceDetector with a pigo cascade
type Detector struct {
	classifier *pigo.Pigo
	config     Config
}

var _ provider.FaceDetector = (*Detector)(nil)

// NewDetector reads and unpacks the facefinder cascade at config.CascadePath
func NewDetector(config Config) (*Detector, error) {
	if config.CascadePath == "" {
		return nil, ErrCascadeMissing
	}
	data, err := os.ReadFile(config.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade file: %w", err)
	}
	return NewDetectorFromCascade(data, config)
}

// NewDetectorFromCascade unpacks an in-memory cascade
func NewDetectorFromCascade(cascade []byte, config Config) (*Detector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &Detector{classifier: classifier, config: config}, nil
}

// DetectFaces runs the cascade and returns the clustered detections scoring
// at least MinScore.
func (d *Detector) DetectFaces(ctx context.Context, img image.Image) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     d.config.MaxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: imaging.Grayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	return toFaces(dets, d.config.MinScore, cols, rows), nil
}

// toFaces converts center/scale detections into clamped top-left boxes
func toFaces(dets []pigo.Detection, minScore float32, width, height int) []provider.DetectedFace {
	faces := make([]provider.DetectedFace, 0, len(dets))
	for _, det := range dets {
		if det.Q < minScore {
			continue
		}
		box := provider.ClampBox(provider.BoundingBox{
			X:      det.Col - det.Scale/2,
			Y:      det.Row - det.Scale/2,
			Width:  det.Scale,
			Height: det.Scale,
		}, width, height)
		if box.Area() == 0 {
			continue
		}
		faces = append(faces, provider.DetectedFace{
			BoundingBox: box,
			Confidence:  float64(det.Q),
		})
	}
	return faces
}
