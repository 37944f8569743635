package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// QualityChecksData represents the individual quality checks of a badge photo
type QualityChecksData struct {
	Size           bool    `json:"size" example:"true"`
	Centered       bool    `json:"centered" example:"true"`
	Orientation    bool    `json:"orientation" example:"true"`
	Brightness     bool    `json:"brightness" example:"true"`
	MeanBrightness float64 `json:"mean_brightness" example:"148.2"`
}

// ValidatePhotoResponse represents the response for badge photo validation
type ValidatePhotoResponse struct {
	SessionID          string            `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Valid              bool              `json:"valid" example:"true"`
	Message            string            `json:"message" example:"Photo is valid for the badge."`
	ComparisonPossible bool              `json:"comparison_possible" example:"true"`
	Checks             QualityChecksData `json:"checks"`
}

// MatchResponse represents the response for face matching. Without a face in
// the document only match and message are present.
type MatchResponse struct {
	Match          bool    `json:"match" example:"true"`
	Distance       float64 `json:"distance" example:"0.21"`
	Threshold      float64 `json:"threshold" example:"0.5"`
	ModelThreshold float64 `json:"model_threshold" example:"0.68"`
	Message        string  `json:"message" example:"The faces match, same person."`
	Page           int     `json:"page" example:"2"`
}

// MatchAttemptData represents a recorded comparison
type MatchAttemptData struct {
	ID         string  `json:"id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	SessionID  string  `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PageNumber int     `json:"page_number" example:"2"`
	Matched    bool    `json:"matched" example:"true"`
	Distance   float64 `json:"distance" example:"0.21"`
	Threshold  float64 `json:"threshold" example:"0.5"`
	Outcome    string  `json:"outcome" example:"compared"`
	LatencyMs  int64   `json:"latency_ms" example:"840"`
	CreatedAt  string  `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// AttemptsResponse represents the list of match attempts of a session
type AttemptsResponse struct {
	SessionID string             `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Attempts  []MatchAttemptData `json:"attempts"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error" example:"Request validation failed"`
	Code  string `json:"code" example:"VALIDATION_FAILED"`
}

// HealthResponse represents the health and readiness responses
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

// NewSwagger creates and configures the Swagger documentation
func NewSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Badgecheck API",
		Version:     "v1.0.0",
		Description: "Badge photo quality validation and face matching against an identity document",
		Host:        host,
		Path:        "/",
	})

	rateLimited := response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Error: "Rate limit exceeded"}, "429", "Too Many Requests")
	internal := response.New(ErrorResponse{Code: "INTERNAL_ERROR", Error: "An unexpected error occurred"}, "500", "Internal Server Error")

	endpoints := []*endpoint.EndPoint{
		// POST /v1/photos/validate - Validate badge photo
		endpoint.New(
			endpoint.POST,
			"/v1/photos/validate",
			endpoint.WithTags("Photos"),
			endpoint.WithSummary("Validate a badge photo"),
			endpoint.WithDescription("Checks face size, centering, orientation and lighting of the uploaded photo (multipart field 'photo', jpeg, png or webp). "+
				"The detected face is kept for the session given in the X-Session-ID header or badge_session cookie; a new session is issued when none is sent. "+
				"A photo without a face is not an error: valid and comparison_possible are false."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ValidatePhotoResponse{}, "200", "Photo evaluated"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Error: "Request validation failed"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Error: "Invalid or unsupported image"}, "422", "Unprocessable Entity"),
				rateLimited,
				response.New(ErrorResponse{Code: "DETECTION_FAILED", Error: "Face detection service failed"}, "502", "Bad Gateway"),
				response.New(ErrorResponse{Code: "STORE_UNAVAILABLE", Error: "Session storage is unavailable"}, "503", "Service Unavailable"),
				internal,
			}),
		),

		// POST /v1/faces/match - Match badge face against identity document
		endpoint.New(
			endpoint.POST,
			"/v1/faces/match",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Compare the badge face with an identity document"),
			endpoint.WithDescription("Scans the uploaded PDF (multipart field 'cin') page by page and compares the first face found with the face stored by the last photo validation of the session. "+
				"When the document holds no face the response is 200 with match false and no distance."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MatchResponse{}, "200", "Comparison completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BADGE_FACE_MISSING", Error: "Validate a badge photo with a detectable face first"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "DOCUMENT_TOO_LARGE", Error: "Document exceeds the allowed size or page count"}, "413", "Payload Too Large"),
				response.New(ErrorResponse{Code: "INVALID_DOCUMENT", Error: "Invalid or unreadable document"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "COMPARISON_FAILED", Error: "A face could not be detected for comparison"}, "422", "Unprocessable Entity"),
				rateLimited,
				response.New(ErrorResponse{Code: "VERIFIER_UNAVAILABLE", Error: "Face verification service failed"}, "502", "Bad Gateway"),
				internal,
			}),
		),

		// GET /v1/faces/attempts - Match attempts of the session
		endpoint.New(
			endpoint.GET,
			"/v1/faces/attempts",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("List match attempts"),
			endpoint.WithDescription("Lists the comparisons recorded for the session in the X-Session-ID header or badge_session cookie, newest first."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of attempts (1-100, default: 20)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttemptsResponse{}, "200", "Attempts listed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Error: "session id is required"}, "400", "Bad Request"),
				rateLimited,
				response.New(ErrorResponse{Code: "STORE_UNAVAILABLE", Error: "Session storage is unavailable"}, "503", "Service Unavailable"),
			}),
		),

		// GET /health
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is running"),
			}),
		),

		// GET /ready
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Pings the session store"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Service is ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "unavailable"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
