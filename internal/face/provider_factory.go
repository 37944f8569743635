package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/audit"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/config"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider/pigo"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider/rekognition"
)

// ProviderType defines supported face provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace HTTP service (default)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is the AWS Rekognition provider
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypePigo is the local cascade detector, for document pages only
	ProviderTypePigo ProviderType = "pigo"
	// ProviderTypeMock is the deterministic provider for dev and tests
	ProviderTypeMock ProviderType = "mock"
)

// NewProviders builds the detector from PROVIDER_TYPE and the verifier from
// VERIFIER_TYPE. When both name the same backend a single instance serves both.
//
// Environment variables:
//   - PROVIDER_TYPE: deepface, rekognition or mock (default: deepface)
//   - VERIFIER_TYPE: deepface, rekognition or mock (default: PROVIDER_TYPE)
//   - DOCUMENT_PROVIDER_TYPE: deepface, rekognition, pigo or mock (default: PROVIDER_TYPE)
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR
//   - AWS_REGION, REKOGNITION_SIMILARITY_THRESHOLD (credentials via the AWS SDK chain)
//   - PIGO_CASCADE_PATH, PIGO_MIN_SCORE
func NewProviders(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (provider.FaceDetector, provider.FaceVerifier, error) {
	detectorType := ProviderType(cfg.ProviderType)
	verifierType := ProviderType(cfg.VerifierType)
	if verifierType == "" {
		verifierType = detectorType
	}
	// Badge grading reads eye and nose landmarks
	if detectorType == ProviderTypePigo {
		return nil, nil, fmt.Errorf("create detector: provider %s reports no landmarks, use it as DOCUMENT_PROVIDER_TYPE", detectorType)
	}

	detector, err := newBackend(ctx, cfg, detectorType, auditLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("create detector: %w", err)
	}

	if verifierType == detectorType {
		if v, ok := detector.(provider.FaceVerifier); ok {
			return detector, v, nil
		}
	}

	backend, err := newBackend(ctx, cfg, verifierType, auditLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("create verifier: %w", err)
	}
	verifier, ok := backend.(provider.FaceVerifier)
	if !ok {
		return nil, nil, fmt.Errorf("provider %s cannot verify faces", verifierType)
	}

	return detector, verifier, nil
}

// NewDocumentDetector builds the detector that scans document pages. It reuses
// the badge photo detector unless DOCUMENT_PROVIDER_TYPE names another backend.
func NewDocumentDetector(ctx context.Context, cfg *config.Config, photo provider.FaceDetector, auditLogger audit.Logger) (provider.FaceDetector, error) {
	documentType := ProviderType(cfg.DocumentProviderType)
	if documentType == "" || documentType == ProviderType(cfg.ProviderType) {
		return photo, nil
	}

	detector, err := newBackend(ctx, cfg, documentType, auditLogger)
	if err != nil {
		return nil, fmt.Errorf("create document detector: %w", err)
	}
	return detector, nil
}

func newBackend(ctx context.Context, cfg *config.Config, providerType ProviderType, auditLogger audit.Logger) (provider.FaceDetector, error) {
	switch providerType {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeRekognition:
		return createRekognitionProvider(ctx, cfg, auditLogger)

	case ProviderTypePigo:
		return createPigoDetector(cfg)

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s, %s)",
			providerType, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypePigo, ProviderTypeMock)
	}
}

// createRekognitionProvider creates an AWS Rekognition provider instance
func createRekognitionProvider(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (*rekognition.Provider, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}
	if cfg.RekognitionSimilarityThreshold > 0 {
		rekogConfig.SimilarityThreshold = cfg.RekognitionSimilarityThreshold
	}

	var opts []rekognition.ProviderOption
	if auditLogger != nil {
		opts = append(opts, rekognition.WithAuditLogger(auditLogger))
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rekognition provider: %w", err)
	}

	return prov, nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}

	return deepface.NewProvider(deepfaceConfig)
}

func createPigoDetector(cfg *config.Config) (*pigo.Detector, error) {
	pigoConfig := pigo.DefaultConfig()
	pigoConfig.CascadePath = cfg.PigoCascadePath
	if cfg.PigoMinScore > 0 {
		pigoConfig.MinScore = cfg.PigoMinScore
	}

	detector, err := pigo.NewDetector(pigoConfig)
	if err != nil {
		return nil, fmt.Errorf("create pigo detector: %w", err)
	}
	return detector, nil
}
