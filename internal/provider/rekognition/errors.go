package rekognition

import (
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates the encoded image violates Rekognition limits
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrNoFaceDetected indicates that no face was found in the provided image
	ErrNoFaceDetected = fmt.Errorf("rekognition: %w", provider.ErrNoFaceDetected)
)
