package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied     = "AccessDeniedException"
	errCodeInvalidParameter = "InvalidParameterException"
)

// API is the subset of the Rekognition client used by the provider
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	CompareFaces(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

// Client wraps the AWS Rekognition client
type Client struct {
	api    API
	config Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		api:    rekognition.NewFromConfig(awsCfg),
		config: cfg,
	}, nil
}

// ParseNoFaceError checks if an AWS error indicates no face was detected.
// CompareFaces answers InvalidParameterException when the source image has no face.
func ParseNoFaceError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeInvalidParameter:
			if msg := apiErr.ErrorMessage(); msg != "" {
				return fmt.Errorf("%w: %s", ErrNoFaceDetected, msg)
			}
			return ErrNoFaceDetected
		case errCodeAccessDenied:
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
	}

	return err
}
