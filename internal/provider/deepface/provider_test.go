package deepface

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 0
	return NewProvider(config)
}

func TestNewProvider_Threshold(t *testing.T) {
	tests := []struct {
		name  string
		model string
		over  float64
		want  float64
	}{
		{"arcface default", "ArcFace", 0, 0.68},
		{"facenet512 default", "Facenet512", 0, 0.30},
		{"unknown model", "Whatever", 0, defaultCosineThreshold},
		{"explicit override", "ArcFace", 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Model = tt.model
			config.Threshold = tt.over

			p := NewProvider(config)
			require.NotNil(t, p.client)
			assert.InDelta(t, tt.want, p.threshold, 1e-9)
		})
	}
}

func TestProvider_DetectFaces(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse RepresentResponse
		serverStatus   int
		wantFaces      []provider.DetectedFace
		wantErr        bool
	}{
		{
			name: "single face with landmarks",
			serverResponse: RepresentResponse{Results: []RepresentResult{{
				Embedding: make([]float64, 512),
				FacialArea: FacialArea{
					X: 50, Y: 40, W: 100, H: 120,
					LeftEye:  &[2]float64{120, 80},
					RightEye: &[2]float64{80, 80},
					Nose:     &[2]float64{100, 100},
				},
				FaceConfidence: 0.98,
			}}},
			serverStatus: http.StatusOK,
			wantFaces: []provider.DetectedFace{{
				BoundingBox: provider.BoundingBox{X: 50, Y: 40, Width: 100, Height: 120},
				Confidence:  0.98,
				Landmarks: &provider.Landmarks{
					LeftEye:  provider.Point{X: 0.6, Y: 0.4},
					RightEye: provider.Point{X: 0.4, Y: 0.4},
					NoseTip:  provider.Point{X: 0.5, Y: 0.5},
				},
			}},
		},
		{
			name: "box clamped and no landmarks",
			serverResponse: RepresentResponse{Results: []RepresentResult{{
				FacialArea:     FacialArea{X: -10, Y: 150, W: 60, H: 80},
				FaceConfidence: 0.9,
			}}},
			serverStatus: http.StatusOK,
			wantFaces: []provider.DetectedFace{{
				BoundingBox: provider.BoundingBox{X: 0, Y: 150, Width: 50, Height: 50},
				Confidence:  0.9,
			}},
		},
		{
			name: "whole frame fallback is not a face",
			serverResponse: RepresentResponse{Results: []RepresentResult{{
				FacialArea:     FacialArea{X: 0, Y: 0, W: 200, H: 200},
				FaceConfidence: 0,
			}}},
			serverStatus: http.StatusOK,
			wantFaces:    []provider.DetectedFace{},
		},
		{
			name:           "no faces detected",
			serverResponse: RepresentResponse{Results: []RepresentResult{}},
			serverStatus:   http.StatusOK,
			wantFaces:      []provider.DetectedFace{},
		},
		{
			name:         "server error",
			serverStatus: http.StatusInternalServerError,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				var req RepresentRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				assert.True(t, strings.HasPrefix(req.Img, "data:image/jpeg;base64,"))
				assert.False(t, req.EnforceDetection)

				w.WriteHeader(tt.serverStatus)
				_ = json.NewEncoder(w).Encode(tt.serverResponse)
			})

			faces, err := p.DetectFaces(context.Background(), testImage(200, 200))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Len(t, faces, len(tt.wantFaces))
			for i, want := range tt.wantFaces {
				got := faces[i]
				assert.Equal(t, want.BoundingBox, got.BoundingBox)
				assert.InDelta(t, want.Confidence, got.Confidence, 1e-9)
				if want.Landmarks == nil {
					assert.Nil(t, got.Landmarks)
					continue
				}
				require.NotNil(t, got.Landmarks)
				assert.InDelta(t, want.Landmarks.LeftEye.X, got.Landmarks.LeftEye.X, 1e-9)
				assert.InDelta(t, want.Landmarks.RightEye.X, got.Landmarks.RightEye.X, 1e-9)
				assert.InDelta(t, want.Landmarks.NoseTip.Y, got.Landmarks.NoseTip.Y, 1e-9)
			}
		})
	}
}

func TestProvider_Verify(t *testing.T) {
	same := []float64{0.1, 0.2, 0.3, 0.4}
	other := []float64{-0.4, 0.3, -0.2, 0.1}

	t.Run("same embedding verifies", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			var req RepresentRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.True(t, req.EnforceDetection)
			_ = json.NewEncoder(w).Encode(RepresentResponse{Results: []RepresentResult{{Embedding: same, FaceConfidence: 1}}})
		})

		v, err := p.Verify(context.Background(), testImage(64, 64), testImage(64, 64))
		require.NoError(t, err)
		assert.True(t, v.Verified)
		assert.InDelta(t, 0, v.Distance, 1e-9)
		assert.InDelta(t, 0.68, v.Threshold, 1e-9)
		assert.Equal(t, "ArcFace", v.Model)
	})

	t.Run("different embeddings do not verify", func(t *testing.T) {
		calls := 0
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			emb := same
			if calls == 2 {
				emb = other
			}
			_ = json.NewEncoder(w).Encode(RepresentResponse{Results: []RepresentResult{{Embedding: emb, FaceConfidence: 1}}})
		})

		v, err := p.Verify(context.Background(), testImage(64, 64), testImage(64, 64))
		require.NoError(t, err)
		assert.False(t, v.Verified)
		assert.InDelta(t, 1.0, v.Distance, 1e-9)
		assert.Equal(t, 2, calls)
	})

	t.Run("no face maps to provider error", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "Exception while representing: Face could not be detected in numpy array.",
			})
		})

		_, err := p.Verify(context.Background(), testImage(64, 64), testImage(64, 64))
		require.Error(t, err)
		assert.ErrorIs(t, err, provider.ErrNoFaceDetected)
	})

	t.Run("empty results map to provider error", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(RepresentResponse{})
		})

		_, err := p.Verify(context.Background(), testImage(64, 64), testImage(64, 64))
		assert.ErrorIs(t, err, provider.ErrNoFaceDetected)
	})

	t.Run("service down is not a no-face error", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := p.Verify(context.Background(), testImage(64, 64), testImage(64, 64))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
		assert.NotErrorIs(t, err, provider.ErrNoFaceDetected)
	})
}
