package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Session store backends
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Storage
	DatabaseURL  string        `envconfig:"DATABASE_URL"`
	RedisURL     string        `envconfig:"REDIS_URL"`
	SessionStore string        `envconfig:"SESSION_STORE" default:"memory"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"15m"`

	// Provider
	// ProviderType detects badge faces, which need landmarks. pigo reports none.
	ProviderType string `envconfig:"PROVIDER_TYPE" default:"deepface"`
	// VerifierType defaults to ProviderType. pigo cannot verify.
	VerifierType string `envconfig:"VERIFIER_TYPE"`
	// DocumentProviderType locates the face in document pages and defaults to ProviderType
	DocumentProviderType string `envconfig:"DOCUMENT_PROVIDER_TYPE"`
	DeepFaceURL          string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel        string `envconfig:"DEEPFACE_MODEL" default:"ArcFace"`
	DeepFaceDetector     string `envconfig:"DEEPFACE_DETECTOR" default:"mtcnn"`

	AWSRegion                      string  `envconfig:"AWS_REGION" default:"us-east-1"`
	RekognitionSimilarityThreshold float64 `envconfig:"REKOGNITION_SIMILARITY_THRESHOLD" default:"0.8"`

	PigoCascadePath string  `envconfig:"PIGO_CASCADE_PATH"`
	PigoMinScore    float32 `envconfig:"PIGO_MIN_SCORE" default:"5"`

	// Documents
	DocumentDPI            float64       `envconfig:"DOCUMENT_DPI" default:"200"`
	MaxDocumentPages       int           `envconfig:"MAX_DOCUMENT_PAGES" default:"10"`
	MaxDocumentBytes       int           `envconfig:"MAX_DOCUMENT_BYTES" default:"20971520"`
	MaxImageBytes          int           `envconfig:"MAX_IMAGE_BYTES" default:"10485760"`
	PageDetectionTimeout   time.Duration `envconfig:"PAGE_DETECTION_TIMEOUT" default:"20s"`
	RequireScannedDocument bool          `envconfig:"REQUIRE_SCANNED_DOCUMENT" default:"false"`

	// Rate limiting, per client IP
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"60"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// MatchThreshold drives the match message, independently of the verifier's own decision
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.VerifierType == "" {
		cfg.VerifierType = cfg.ProviderType
	}
	if cfg.DocumentProviderType == "" {
		cfg.DocumentProviderType = cfg.ProviderType
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks combinations envconfig cannot express
func (c *Config) Validate() error {
	var errs []error

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when SESSION_STORE=postgres"))
		}
	case SessionStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when SESSION_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}

	if c.ProviderType == "pigo" {
		errs = append(errs, errors.New("pigo reports no landmarks to grade badge photos with, use it through DOCUMENT_PROVIDER_TYPE"))
	}
	if c.VerifierType == "pigo" {
		errs = append(errs, errors.New("pigo can only detect faces, set VERIFIER_TYPE to deepface, rekognition or mock"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.MaxDocumentPages <= 0 {
		errs = append(errs, errors.New("MAX_DOCUMENT_PAGES must be positive"))
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 2 {
		errs = append(errs, errors.New("MATCH_THRESHOLD must be in (0, 2]"))
	}
	if c.DocumentDPI <= 0 {
		errs = append(errs, errors.New("DOCUMENT_DPI must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
