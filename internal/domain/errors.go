package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so errors.Is works against
// the pre-defined values even after WithError produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 400,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	// Precondition
	ErrBadgeFaceMissing = &AppError{
		Code:       "BADGE_FACE_MISSING",
		Message:    "No valid badge face available, validate a photo first",
		StatusCode: 400,
	}

	// Input malformed
	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrInvalidDocument = &AppError{
		Code:       "INVALID_DOCUMENT",
		Message:    "The identity document could not be read",
		StatusCode: 422,
	}

	ErrEmptyDocument = &AppError{
		Code:       "EMPTY_DOCUMENT",
		Message:    "The identity document has no pages",
		StatusCode: 422,
	}

	ErrDocumentTooLarge = &AppError{
		Code:       "DOCUMENT_TOO_LARGE",
		Message:    "The identity document is too large",
		StatusCode: 413,
	}

	ErrDocumentNotScanned = &AppError{
		Code:       "DOCUMENT_NOT_SCANNED",
		Message:    "The identity document must be a scan",
		StatusCode: 422,
	}

	// Collaborator faults
	ErrDetectionFailed = &AppError{
		Code:       "DETECTION_FAILED",
		Message:    "Face detection service failed",
		StatusCode: 502,
	}

	ErrComparisonFailed = &AppError{
		Code:       "COMPARISON_FAILED",
		Message:    "Faces could not be compared, no face found by the verifier",
		StatusCode: 422,
	}

	ErrVerifierUnavailable = &AppError{
		Code:       "VERIFIER_UNAVAILABLE",
		Message:    "Face verification service failed",
		StatusCode: 502,
	}

	ErrStoreUnavailable = &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "Session storage is unavailable",
		StatusCode: 503,
	}
)
