package quality

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

type stubDetector struct {
	faces []provider.DetectedFace
	err   error
	calls int
}

func (s *stubDetector) DetectFaces(_ context.Context, _ image.Image) ([]provider.DetectedFace, error) {
	s.calls++
	return s.faces, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uniform(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

// centeredFace is a frontal 100x100 face in the middle of a 200x200 image
func centeredFace() provider.DetectedFace {
	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{X: 50, Y: 50, Width: 100, Height: 100},
		Confidence:  0.99,
		Landmarks:   landmarks(0.5, 0.4, 0.4),
	}
}

func TestAssess_Brightness(t *testing.T) {
	tests := []struct {
		name       string
		gray       uint8
		wantPassed bool
		wantReason string
	}{
		{"lower limit", 100, true, domain.MsgPhotoValid},
		{"upper limit", 210, true, domain.MsgPhotoValid},
		{"just too dark", 99, false, domain.MsgTooDark},
		{"just overexposed", 211, false, domain.MsgOverexposed},
		{"black", 0, false, domain.MsgTooDark},
		{"white", 255, false, domain.MsgOverexposed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Assess(uniform(200, 200, tt.gray), centeredFace())

			assert.Equal(t, tt.wantPassed, v.Passed)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.InDelta(t, float64(tt.gray), v.Checks.MeanBrightness, 1e-9)
			assert.Equal(t, tt.wantPassed, v.Checks.Brightness)
			require.NotNil(t, v.FaceCrop, "crop is returned whatever the verdict")
		})
	}
}

func TestAssess_Checks(t *testing.T) {
	tests := []struct {
		name       string
		face       provider.DetectedFace
		wantPassed bool
		wantReason string
		wantChecks domain.QualityChecks
	}{
		{
			name:       "valid",
			face:       centeredFace(),
			wantPassed: true,
			wantReason: domain.MsgPhotoValid,
			wantChecks: domain.QualityChecks{Size: true, Centered: true, Orientation: true, Brightness: true},
		},
		{
			name: "face too small",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 90, Y: 90, Width: 20, Height: 20},
				Landmarks:   landmarks(0.5, 0.4, 0.4),
			},
			wantReason: domain.MsgFaceTooSmall,
			wantChecks: domain.QualityChecks{Centered: true, Orientation: true, Brightness: true},
		},
		{
			name: "size exactly at 20 percent",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 80, Y: 80, Width: 40, Height: 40},
				Landmarks:   landmarks(0.5, 0.4, 0.4),
			},
			wantPassed: true,
			wantReason: domain.MsgPhotoValid,
			wantChecks: domain.QualityChecks{Size: true, Centered: true, Orientation: true, Brightness: true},
		},
		{
			name: "off center",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 0, Y: 0, Width: 60, Height: 60},
				Landmarks:   landmarks(0.5, 0.4, 0.4),
			},
			wantReason: domain.MsgFaceNotCentered,
			wantChecks: domain.QualityChecks{Size: true, Orientation: true, Brightness: true},
		},
		{
			name: "center offset at limit",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 0, Y: 0, Width: 100, Height: 100},
				Landmarks:   landmarks(0.5, 0.4, 0.4),
			},
			wantPassed: true,
			wantReason: domain.MsgPhotoValid,
			wantChecks: domain.QualityChecks{Size: true, Centered: true, Orientation: true, Brightness: true},
		},
		{
			name: "no landmarks",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 50, Y: 50, Width: 100, Height: 100},
			},
			wantReason: domain.MsgNoLandmarks,
			wantChecks: domain.QualityChecks{Size: true, Centered: true, Brightness: true},
		},
		{
			name: "small and off center reports centering",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 0, Y: 0, Width: 10, Height: 10},
				Landmarks:   landmarks(0.5, 0.4, 0.4),
			},
			wantReason: domain.MsgFaceNotCentered,
			wantChecks: domain.QualityChecks{Orientation: true, Brightness: true},
		},
		{
			name: "small and tilted reports tilt",
			face: provider.DetectedFace{
				BoundingBox: provider.BoundingBox{X: 90, Y: 90, Width: 20, Height: 20},
				Landmarks:   landmarks(0.5, 0.3, 0.4),
			},
			wantReason: domain.MsgHeadTilted,
			wantChecks: domain.QualityChecks{Centered: true, Brightness: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Assess(uniform(200, 200, 150), tt.face)

			assert.Equal(t, tt.wantPassed, v.Passed)
			assert.Equal(t, tt.wantReason, v.Reason)
			tt.wantChecks.MeanBrightness = 150
			assert.Equal(t, tt.wantChecks, v.Checks)
			assert.NotNil(t, v.FaceCrop)
		})
	}
}

func TestAssess_LastFailureWins(t *testing.T) {
	// small, off center, turned and dark: brightness is checked last
	face := provider.DetectedFace{
		BoundingBox: provider.BoundingBox{X: 0, Y: 0, Width: 10, Height: 10},
		Landmarks:   landmarks(0.7, 0.4, 0.4),
	}

	v := Assess(uniform(200, 200, 30), face)

	assert.False(t, v.Passed)
	assert.Equal(t, domain.MsgTooDark, v.Reason)
	assert.Equal(t, domain.QualityChecks{MeanBrightness: 30}, v.Checks)
}

func TestAssess_CropIsMarginExpandedBox(t *testing.T) {
	img := uniform(200, 200, 150)

	t.Run("inside the image", func(t *testing.T) {
		v := Assess(img, centeredFace())
		assert.Equal(t, image.Rect(0, 0, 140, 140), v.FaceCrop.Bounds())
	})

	t.Run("clamped at the border", func(t *testing.T) {
		face := centeredFace()
		face.BoundingBox = provider.BoundingBox{X: 5, Y: 10, Width: 190, Height: 185}
		v := Assess(img, face)
		assert.Equal(t, image.Rect(0, 0, 200, 200), v.FaceCrop.Bounds())
	})

	t.Run("brightness measured on the crop only", func(t *testing.T) {
		dark := uniform(200, 200, 20)
		for y := 30; y < 170; y++ {
			for x := 30; x < 170; x++ {
				dark.Set(x, y, color.RGBA{R: 180, G: 180, B: 180, A: 255})
			}
		}
		v := Assess(dark, centeredFace())
		assert.True(t, v.Passed)
		assert.InDelta(t, 180, v.Checks.MeanBrightness, 1e-9)
	})
}

func TestAssess_DegenerateBox(t *testing.T) {
	face := provider.DetectedFace{BoundingBox: provider.BoundingBox{X: 500, Y: 500, Width: 10, Height: 10}}

	v := Assess(uniform(200, 200, 150), face)

	assert.False(t, v.Passed)
	assert.Equal(t, domain.MsgNoFaceDetected, v.Reason)
	assert.Nil(t, v.FaceCrop)
}

func TestEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("no face", func(t *testing.T) {
		det := &stubDetector{faces: []provider.DetectedFace{}}
		v, err := NewEvaluator(det, testLogger()).Evaluate(ctx, uniform(200, 200, 150))

		require.NoError(t, err)
		assert.False(t, v.Passed)
		assert.Equal(t, domain.MsgNoFaceDetected, v.Reason)
		assert.Nil(t, v.FaceCrop)
		assert.Equal(t, domain.QualityChecks{}, v.Checks, "no check runs without a face")
	})

	t.Run("largest face is graded", func(t *testing.T) {
		small := provider.DetectedFace{BoundingBox: provider.BoundingBox{X: 90, Y: 90, Width: 10, Height: 10}, Landmarks: landmarks(0.5, 0.4, 0.4)}
		det := &stubDetector{faces: []provider.DetectedFace{small, centeredFace()}}

		v, err := NewEvaluator(det, testLogger()).Evaluate(ctx, uniform(200, 200, 150))

		require.NoError(t, err)
		assert.True(t, v.Passed, "the small face listed first must not be graded")
		assert.Equal(t, domain.MsgPhotoValid, v.Reason)
		require.NotNil(t, v.FaceCrop)
		assert.Equal(t, image.Rect(0, 0, 140, 140), v.FaceCrop.Bounds())
	})

	t.Run("detector failure", func(t *testing.T) {
		boom := errors.New("service down")
		det := &stubDetector{err: boom}

		_, err := NewEvaluator(det, testLogger()).Evaluate(ctx, uniform(200, 200, 150))

		assert.ErrorIs(t, err, boom)
	})

	t.Run("idempotent", func(t *testing.T) {
		det := &stubDetector{faces: []provider.DetectedFace{centeredFace()}}
		e := NewEvaluator(det, testLogger())
		img := uniform(200, 200, 150)

		first, err := e.Evaluate(ctx, img)
		require.NoError(t, err)
		second, err := e.Evaluate(ctx, img)
		require.NoError(t, err)

		assert.Equal(t, first.Passed, second.Passed)
		assert.Equal(t, first.Reason, second.Reason)
		assert.Equal(t, first.Checks, second.Checks)
		assert.Equal(t, first.FaceCrop, second.FaceCrop)
		assert.Equal(t, 2, det.calls)
	})
}
