package rekognition

import (
	"context"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100

	providerName = "rekognition"
)

// Provider implements provider.FaceProvider using AWS Rekognition
type Provider struct {
	client      *Client
	auditLogger audit.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAuditLogger sets the audit logger for the provider
func WithAuditLogger(logger audit.Logger) ProviderOption {
	return func(p *Provider) {
		p.auditLogger = logger
	}
}

// Ensure Provider implements provider.FaceProvider interface at compile time
var _ provider.FaceProvider = (*Provider)(nil)

// NewProvider creates a new Rekognition provider
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return newProvider(client, opts...), nil
}

func newProvider(client *Client, opts ...ProviderOption) *Provider {
	p := &Provider{client: client}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (p *Provider) logAudit(ctx context.Context, eventType audit.EventType, success bool, err error, metadata map[string]string) {
	if p.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Provider:  providerName,
		Success:   success,
		Metadata:  metadata,
	}

	if err != nil {
		event.Error = err.Error()
	}

	_ = p.auditLogger.Log(ctx, event)
}

// encodeImage produces the JPEG bytes sent to Rekognition and checks its limits
func encodeImage(img image.Image) ([]byte, error) {
	data, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) < minImageSize {
		return nil, fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(data), minImageSize)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(data), maxImageSize)
	}
	return data, nil
}

// DetectFaces detects faces in an image using AWS Rekognition DetectFaces API
// Returns an empty slice if no faces are detected (not an error)
func (p *Provider) DetectFaces(ctx context.Context, img image.Image) ([]provider.DetectedFace, error) {
	data, err := encodeImage(img)
	if err != nil {
		p.logAudit(ctx, audit.EventFaceDetected, false, err, nil)
		return nil, err
	}

	output, err := p.client.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: data},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		err = ParseNoFaceError(err)
		p.logAudit(ctx, audit.EventFaceDetected, false, err, map[string]string{
			"image_size": strconv.Itoa(len(data)),
		})
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		box := provider.ClampBox(toPixels(detail.BoundingBox, width, height), width, height)
		if box.Area() == 0 {
			continue
		}

		faces = append(faces, provider.DetectedFace{
			BoundingBox: box,
			Confidence:  float64(aws.ToFloat32(detail.Confidence)) / 100,
			Landmarks:   toLandmarks(detail.Landmarks),
		})
	}

	p.logAudit(ctx, audit.EventFaceDetected, true, nil, map[string]string{
		"faces_count": strconv.Itoa(len(faces)),
		"image_size":  strconv.Itoa(len(data)),
	})

	return faces, nil
}

// Verify compares the face in a against the faces in b with CompareFaces.
// The similarity threshold sent to AWS is zero so the best similarity is
// always returned and the decision is taken locally.
func (p *Provider) Verify(ctx context.Context, a, b image.Image) (*provider.Verification, error) {
	source, err := encodeImage(a)
	if err != nil {
		return nil, err
	}
	target, err := encodeImage(b)
	if err != nil {
		return nil, err
	}

	output, err := p.client.api.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: source},
		TargetImage:         &types.Image{Bytes: target},
		SimilarityThreshold: aws.Float32(0),
	})
	if err != nil {
		err = ParseNoFaceError(err)
		p.logAudit(ctx, audit.EventFaceCompared, false, err, nil)
		return nil, fmt.Errorf("compare faces: %w", err)
	}

	if len(output.FaceMatches) == 0 && len(output.UnmatchedFaces) == 0 {
		p.logAudit(ctx, audit.EventFaceCompared, false, ErrNoFaceDetected, map[string]string{"image": "target"})
		return nil, fmt.Errorf("compare faces: target: %w", ErrNoFaceDetected)
	}

	var best float32
	for _, match := range output.FaceMatches {
		if s := aws.ToFloat32(match.Similarity); s > best {
			best = s
		}
	}

	similarity := float64(best) / 100.0
	threshold := p.client.config.SimilarityThreshold
	result := &provider.Verification{
		Verified:  similarity >= threshold,
		Distance:  1 - similarity,
		Threshold: 1 - threshold,
		Model:     providerName,
	}

	p.logAudit(ctx, audit.EventFaceCompared, true, nil, map[string]string{
		"similarity": strconv.FormatFloat(similarity, 'f', 4, 64),
		"verified":   strconv.FormatBool(result.Verified),
	})

	return result, nil
}

func toPixels(bb *types.BoundingBox, width, height int) provider.BoundingBox {
	return provider.BoundingBox{
		X:      int(math.Round(float64(aws.ToFloat32(bb.Left)) * float64(width))),
		Y:      int(math.Round(float64(aws.ToFloat32(bb.Top)) * float64(height))),
		Width:  int(math.Round(float64(aws.ToFloat32(bb.Width)) * float64(width))),
		Height: int(math.Round(float64(aws.ToFloat32(bb.Height)) * float64(height))),
	}
}

// toLandmarks picks the eyes and the nose. Rekognition already reports them
// as ratios of the image size.
func toLandmarks(landmarks []types.Landmark) *provider.Landmarks {
	var lm provider.Landmarks
	found := 0
	for _, l := range landmarks {
		p := provider.Point{X: float64(aws.ToFloat32(l.X)), Y: float64(aws.ToFloat32(l.Y))}
		switch l.Type {
		case types.LandmarkTypeEyeLeft:
			lm.LeftEye = p
			found++
		case types.LandmarkTypeEyeRight:
			lm.RightEye = p
			found++
		case types.LandmarkTypeNose:
			lm.NoseTip = p
			found++
		}
	}
	if found < 3 {
		return nil
	}
	return &lm
}
