package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

// cosineThresholds are deepface's own decision thresholds for the cosine metric.
var cosineThresholds = map[string]float64{
	"VGG-Face":     0.68,
	"Facenet":      0.40,
	"Facenet512":   0.30,
	"ArcFace":      0.68,
	"Dlib":         0.07,
	"SFace":        0.593,
	"OpenFace":     0.10,
	"DeepFace":     0.23,
	"DeepID":       0.015,
	"GhostFaceNet": 0.65,
}

const defaultCosineThreshold = 0.40

// Provider implements provider.FaceProvider using DeepFace API
type Provider struct {
	client    *Client
	model     string
	threshold float64
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = ThresholdFor(config.Model)
	}
	return &Provider{
		client:    NewClient(config),
		model:     config.Model,
		threshold: threshold,
	}
}

// ThresholdFor returns deepface's cosine threshold for model.
func ThresholdFor(model string) float64 {
	if t, ok := cosineThresholds[model]; ok {
		return t
	}
	return defaultCosineThreshold
}

// DetectFaces detects faces in the image. Detection is not enforced, so the
// whole-frame fallback deepface returns for faceless images is filtered out.
func (p *Provider) DetectFaces(ctx context.Context, img image.Image) ([]provider.DetectedFace, error) {
	uri, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Represent(ctx, uri, false)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		area := result.FacialArea
		if isWholeFrame(result, width, height) {
			continue
		}

		box := provider.ClampBox(provider.BoundingBox{X: area.X, Y: area.Y, Width: area.W, Height: area.H}, width, height)
		if box.Area() == 0 {
			continue
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: box,
			Confidence:  result.FaceConfidence,
			Landmarks:   landmarksFrom(area, width, height),
		})
	}

	return faces, nil
}

// Verify represents both images with enforced detection and compares the
// embeddings with the cosine distance.
func (p *Provider) Verify(ctx context.Context, a, b image.Image) (*provider.Verification, error) {
	embA, err := p.embed(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("verify first image: %w", err)
	}
	embB, err := p.embed(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("verify second image: %w", err)
	}

	distance := provider.CosineDistance(embA, embB)
	return &provider.Verification{
		Verified:  distance <= p.threshold,
		Distance:  distance,
		Threshold: p.threshold,
		Model:     p.model,
	}, nil
}

func (p *Provider) embed(ctx context.Context, img image.Image) ([]float64, error) {
	uri, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Represent(ctx, uri, true)
	if err != nil {
		if isNoFaceError(err) {
			return nil, fmt.Errorf("%w: %v", provider.ErrNoFaceDetected, err)
		}
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: %v", provider.ErrNoFaceDetected, ErrNoFaceInResponse)
	}
	if len(resp.Results[0].Embedding) == 0 {
		return nil, ErrInvalidResponse
	}

	// Use first face found
	return resp.Results[0].Embedding, nil
}

func encodeImage(img image.Image) (string, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func isWholeFrame(r RepresentResult, width, height int) bool {
	a := r.FacialArea
	return r.FaceConfidence == 0 && a.X == 0 && a.Y == 0 && a.W >= width && a.H >= height
}

func landmarksFrom(area FacialArea, width, height int) *provider.Landmarks {
	if area.LeftEye == nil || area.RightEye == nil || area.Nose == nil {
		return nil
	}
	return &provider.Landmarks{
		LeftEye:  provider.Normalize(area.LeftEye[0], area.LeftEye[1], width, height),
		RightEye: provider.Normalize(area.RightEye[0], area.RightEye[1], width, height),
		NoseTip:  provider.Normalize(area.Nose[0], area.Nose[1], width, height),
	}
}

// Ensure Provider implements provider.FaceProvider
var _ provider.FaceProvider = (*Provider)(nil)
