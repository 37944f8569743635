package deepface

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDeepFaceUnavailable = errors.New("deepface service unavailable")
	ErrInvalidResponse     = errors.New("invalid response from deepface")
	ErrNoFaceInResponse    = errors.New("no face data in deepface response")
	ErrInvalidImageFormat  = errors.New("invalid image format for deepface")
)

// StatusError is returned when deepface answers with a status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("deepface returned status %d: %s", e.StatusCode, e.Body)
}

// isClientError reports whether err carries a 4xx answer, which is never retried.
func isClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}

// isNoFaceError recognises the 400 deepface sends when enforce_detection is
// on and the detector found nothing.
func isNoFaceError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 {
		return false
	}
	body := strings.ToLower(se.Body)
	return strings.Contains(body, "face could not be detected") ||
		strings.Contains(body, "no face")
}
