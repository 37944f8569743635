package provider

import (
	"context"
	"errors"
	"image"
)

// ErrNoFaceDetected is returned by verifiers running with enforced detection
// when one of the images holds no face.
var ErrNoFaceDetected = errors.New("no face detected in image")

// FaceDetector localiza faces em uma imagem.
type FaceDetector interface {
	// DetectFaces returns every face found, in detector-native order.
	// No face is an empty slice, not an error. Errors are collaborator faults.
	DetectFaces(ctx context.Context, img image.Image) ([]DetectedFace, error)
}

// FaceVerifier decide se duas imagens mostram a mesma pessoa.
type FaceVerifier interface {
	// Verify compares the faces in a and b with enforced detection.
	Verify(ctx context.Context, a, b image.Image) (*Verification, error)
}

// FaceProvider is implemented by backends that both detect and verify.
type FaceProvider interface {
	FaceDetector
	FaceVerifier
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Landmarks   *Landmarks  `json:"landmarks,omitempty"`
}

// BoundingBox represents the face area in the image, in pixels
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns width*height.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Largest returns the face with the biggest box area, the first one on ties.
// faces must not be empty.
func Largest(faces []DetectedFace) DetectedFace {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.BoundingBox.Area() > best.BoundingBox.Area() {
			best = f
		}
	}
	return best
}

// Rect converts the box to an image.Rectangle relative to origin.
func (b BoundingBox) Rect(origin image.Point) image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Add(origin)
}

// ClampBox restricts b to a width x height frame. Detectors such as MTCNN
// report boxes with negative origins for faces touching the border.
func ClampBox(b BoundingBox, width, height int) BoundingBox {
	x0 := clamp(b.X, 0, width)
	y0 := clamp(b.Y, 0, height)
	x1 := clamp(b.X+b.Width, 0, width)
	y1 := clamp(b.Y+b.Height, 0, height)
	return BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Point is a landmark position normalized to [0,1] against the full image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks holds the facial points used for orientation checks.
type Landmarks struct {
	LeftEye  Point `json:"left_eye"`
	RightEye Point `json:"right_eye"`
	NoseTip  Point `json:"nose_tip"`
}

// Normalize converts pixel coordinates to a Point within a width x height image.
func Normalize(px, py float64, width, height int) Point {
	if width <= 0 || height <= 0 {
		return Point{}
	}
	return Point{X: px / float64(width), Y: py / float64(height)}
}

// Verification is the result of a face verification.
type Verification struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
}
