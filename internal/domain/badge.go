package domain

import (
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
)

// Mensagens exibidas ao usuário. Os textos são parte do contrato da API.
const (
	MsgFaceTooSmall     = "The face is too small or too far away."
	MsgFaceNotCentered  = "The face must be centered."
	MsgNoLandmarks      = "No facial landmarks could be located."
	MsgFaceNotFrontal   = "The face is not frontal enough."
	MsgHeadTilted       = "The head is tilted."
	MsgOrientationOK    = "Orientation is correct."
	MsgTooDark          = "Lighting is too weak."
	MsgOverexposed      = "The photo is overexposed."
	MsgPhotoValid       = "Photo is valid for the badge."
	MsgNoFaceDetected   = "No face detected."
	MsgNoFaceInDocument = "No face detected in the identity document."
	MsgFacesMatch       = "The faces match, same person."
	MsgFacesDiffer      = "The faces do not match."
)

// FaceOnPageMessage reports the 1-based page where the document face was found.
func FaceOnPageMessage(page int) string {
	return fmt.Sprintf("Face detected on page %d of the document.", page)
}

// QualityChecks records each check individually. The verdict reason only
// reports the last failing one.
type QualityChecks struct {
	Size           bool    `json:"size"`
	Centered       bool    `json:"centered"`
	Orientation    bool    `json:"orientation"`
	Brightness     bool    `json:"brightness"`
	MeanBrightness float64 `json:"mean_brightness"`
}

// QualityVerdict é o resultado da avaliação de uma foto de crachá.
// FaceCrop is set whenever a face was detected, even when Passed is false.
type QualityVerdict struct {
	Passed   bool
	Reason   string
	FaceCrop image.Image
	Checks   QualityChecks
}

// PageMatch is the face found in an identity document.
type PageMatch struct {
	FaceCrop   image.Image
	PageNumber int
	Message    string
}

// PhotoValidation is returned by the photo validation use case.
type PhotoValidation struct {
	SessionID          string         `json:"session_id"`
	Valid              bool           `json:"valid"`
	Message            string         `json:"message"`
	ComparisonPossible bool           `json:"comparison_possible"`
	Checks             *QualityChecks `json:"checks,omitempty"`
}

// SimilarityResult is the outcome of matching the badge face against the
// identity document. Threshold is the configured distance that decides the
// message; ModelThreshold is the verifier's own cut-off behind Matched.
// Compared is false when the document held no face, in which case Distance
// and both thresholds are meaningless.
type SimilarityResult struct {
	Matched        bool
	Distance       float64
	Threshold      float64
	ModelThreshold float64
	Message        string
	PageNumber     int
	Compared       bool
}

// Outcomes stored with each match attempt.
const (
	OutcomeCompared         = "compared"
	OutcomeNoFaceInDocument = "no_face_in_document"
	OutcomeComparisonFailed = "comparison_failed"
	OutcomeVerifierError    = "verifier_error"
)

// MatchAttempt representa um registro de comparação (audit)
type MatchAttempt struct {
	ID         uuid.UUID `json:"id"`
	SessionID  string    `json:"session_id"`
	PageNumber int       `json:"page_number"`
	Matched    bool      `json:"matched"`
	Distance   float64   `json:"distance"`
	Threshold  float64   `json:"threshold"`
	Outcome    string    `json:"outcome"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
