package quality

import (
	"math"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/provider"
)

const (
	// MaxNoseOffset is the largest horizontal distance, as a fraction of the
	// image width, between the nose tip and the midpoint of the eyes.
	MaxNoseOffset = 0.03
	// MaxEyeTilt is the largest vertical distance between the eyes, as a
	// fraction of the image height.
	MaxEyeTilt = 0.02

	// tolerance lets the exact limits pass despite float representation
	tolerance = 1e-9
)

// CheckOrientation tells whether the face looks straight at the camera.
// The frontal test runs first and its failure is reported alone.
func CheckOrientation(lm *provider.Landmarks) (bool, string) {
	if lm == nil {
		return false, domain.MsgNoLandmarks
	}

	eyesMidX := (lm.LeftEye.X + lm.RightEye.X) / 2
	if math.Abs(lm.NoseTip.X-eyesMidX) > MaxNoseOffset+tolerance {
		return false, domain.MsgFaceNotFrontal
	}

	if math.Abs(lm.LeftEye.Y-lm.RightEye.Y) > MaxEyeTilt+tolerance {
		return false, domain.MsgHeadTilted
	}

	return true, domain.MsgOrientationOK
}
