// Package imaging holds the pixel-level helpers shared by the quality
// evaluator, the document locator and the providers.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/webp"
)

// JPEGQuality is used for every crop we encode.
const JPEGQuality = 95

var (
	ErrEmptyImage     = errors.New("empty image data")
	ErrDegenerateRect = errors.New("rectangle has no area")
)

// Decode decodes JPEG, PNG or WebP bytes and returns the format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// Crop copies r out of img into a new RGBA whose bounds start at (0,0).
// r is intersected with the image bounds first.
func Crop(img image.Image, r image.Rectangle) (*image.RGBA, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrDegenerateRect
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

// Expand grows r by margin pixels on each side and clamps it to bounds.
func Expand(r image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	return r.Inset(-margin).Intersect(bounds)
}

// Luma returns the BT.601 luminance of an 8-bit RGB triple, rounded the way
// OpenCV's RGB2GRAY conversion rounds.
func Luma(r, g, b uint8) uint8 {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return uint8(math.Min(255, math.Round(y)))
}

// MeanLuminance averages Luma over every pixel of r.
func MeanLuminance(img image.Image, r image.Rectangle) (float64, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return 0, ErrDegenerateRect
	}

	var sum uint64
	switch src := img.(type) {
	case *image.RGBA:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			off := src.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				sum += uint64(Luma(src.Pix[off], src.Pix[off+1], src.Pix[off+2]))
				off += 4
			}
		}
	default:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				sum += uint64(Luma(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8)))
			}
		}
	}

	return float64(sum) / float64(r.Dx()*r.Dy()), nil
}

// Grayscale converts the whole image to a row-major slice of Luma values.
func Grayscale(img image.Image) []uint8 {
	b := img.Bounds()
	out := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			out = append(out, Luma(uint8(cr>>8), uint8(cg>>8), uint8(cb>>8)))
		}
	}
	return out
}

// EncodeJPEG encodes img with JPEGQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
