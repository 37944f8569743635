package mock

import (
	"context"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

const (
	// MinSide is the smallest width or height on which a face is reported
	MinSide = 64
	// Threshold is the distance at or below which Verify reports a match
	Threshold = 0.4

	gridSize = 8
	// minContrast separates blank images, which hold no face, from real ones
	minContrast = 8
)

// Provider implementa provider.FaceProvider para testes e desenvolvimento.
// Every image that is large enough and not blank holds one centered frontal face.
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

var _ provider.FaceProvider = (*Provider)(nil)

// DetectFaces reports a centered frontal face covering half the width and
// 60% of the height.
func (p *Provider) DetectFaces(ctx context.Context, img image.Image) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasFace(img) {
		return []provider.DetectedFace{}, nil
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      w / 4,
				Y:      h / 5,
				Width:  w / 2,
				Height: h * 3 / 5,
			},
			Confidence: 0.99,
			Landmarks: &provider.Landmarks{
				LeftEye:  provider.Point{X: 0.4, Y: 0.4},
				RightEye: provider.Point{X: 0.6, Y: 0.4},
				NoseTip:  provider.Point{X: 0.5, Y: 0.5},
			},
		},
	}, nil
}

// Verify compares mean-centred luminance grids. Identical images give a
// distance of 0.
func (p *Provider) Verify(ctx context.Context, a, b image.Image) (*provider.Verification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasFace(a) {
		return nil, fmt.Errorf("first image: %w", provider.ErrNoFaceDetected)
	}
	if !hasFace(b) {
		return nil, fmt.Errorf("second image: %w", provider.ErrNoFaceDetected)
	}

	distance := provider.CosineDistance(embedding(a), embedding(b))
	return &provider.Verification{
		Verified:  distance <= Threshold,
		Distance:  distance,
		Threshold: Threshold,
		Model:     "mock",
	}, nil
}

func hasFace(img image.Image) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	if b.Dx() < MinSide || b.Dy() < MinSide {
		return false
	}
	lo, hi := 255.0, 0.0
	for _, v := range grid(img) {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return hi-lo >= minContrast
}

// embedding is the luminance grid with its mean removed
func embedding(img image.Image) []float64 {
	g := grid(img)
	var mean float64
	for _, v := range g {
		mean += v
	}
	mean /= float64(len(g))
	for i := range g {
		g[i] -= mean
	}
	return g
}

// grid averages luminance over gridSize x gridSize cells
func grid(img image.Image) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, gridSize*gridSize)
	for j := 0; j < gridSize; j++ {
		for i := 0; i < gridSize; i++ {
			cell := image.Rect(
				b.Min.X+i*b.Dx()/gridSize, b.Min.Y+j*b.Dy()/gridSize,
				b.Min.X+(i+1)*b.Dx()/gridSize, b.Min.Y+(j+1)*b.Dy()/gridSize,
			)
			mean, err := imaging.MeanLuminance(img, cell)
			if err != nil {
				mean = 0
			}
			out = append(out, mean)
		}
	}
	return out
}
