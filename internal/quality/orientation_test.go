package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

func landmarks(noseX, leftY, rightY float64) *provider.Landmarks {
	return &provider.Landmarks{
		LeftEye:  provider.Point{X: 0.4, Y: leftY},
		RightEye: provider.Point{X: 0.6, Y: rightY},
		NoseTip:  provider.Point{X: noseX, Y: 0.5},
	}
}

func TestCheckOrientation(t *testing.T) {
	tests := []struct {
		name       string
		landmarks  *provider.Landmarks
		wantOK     bool
		wantReason string
	}{
		{"no landmarks", nil, false, domain.MsgNoLandmarks},
		{"frontal and level", landmarks(0.5, 0.4, 0.4), true, domain.MsgOrientationOK},
		{"nose offset at limit", landmarks(0.53, 0.4, 0.4), true, domain.MsgOrientationOK},
		{"nose offset at negative limit", landmarks(0.47, 0.4, 0.4), true, domain.MsgOrientationOK},
		{"nose offset above limit", landmarks(0.531, 0.4, 0.4), false, domain.MsgFaceNotFrontal},
		{"eye tilt at limit", landmarks(0.5, 0.4, 0.42), true, domain.MsgOrientationOK},
		{"eye tilt above limit", landmarks(0.5, 0.4, 0.421), false, domain.MsgHeadTilted},
		{"eye tilt the other way", landmarks(0.5, 0.421, 0.4), false, domain.MsgHeadTilted},
		{"turned and tilted reports turned", landmarks(0.6, 0.4, 0.5), false, domain.MsgFaceNotFrontal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckOrientation(tt.landmarks)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
