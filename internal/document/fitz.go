package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI matches the resolution PDF pages are usually scanned at.
const DefaultDPI = 200

// ErrTooManyPages is returned before rendering when the page count exceeds the limit.
var ErrTooManyPages = errors.New("document has too many pages")

// Rasterizer renders every page of a document, in order.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte) ([]image.Image, error)
}

// TextProber reports whether a document carries extractable text, which
// scanned documents do not.
type TextProber interface {
	HasText(ctx context.Context, data []byte) (bool, error)
}

// FitzRasterizer renders PDF pages with MuPDF. A fitz.Document is not safe
// for concurrent use, so every call opens its own.
type FitzRasterizer struct {
	DPI      float64
	MaxPages int
}

// NewFitzRasterizer returns a rasterizer rendering at dpi, refusing documents
// with more than maxPages pages (0 means no limit).
func NewFitzRasterizer(dpi float64, maxPages int) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRasterizer{DPI: dpi, MaxPages: maxPages}
}

var (
	_ Rasterizer = (*FitzRasterizer)(nil)
	_ TextProber = (*FitzRasterizer)(nil)
)

// Rasterize renders each page to an RGBA image.
func (r *FitzRasterizer) Rasterize(ctx context.Context, data []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer func() {
		_ = doc.Close()
	}()

	n := doc.NumPage()
	if r.MaxPages > 0 && n > r.MaxPages {
		return nil, fmt.Errorf("%w: %d pages, maximum %d", ErrTooManyPages, n, r.MaxPages)
	}

	pages := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, r.DPI)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}

	return pages, nil
}

// HasText reports whether any page has non-blank extractable text.
func (r *FitzRasterizer) HasText(ctx context.Context, data []byte) (bool, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return false, fmt.Errorf("open document: %w", err)
	}
	defer func() {
		_ = doc.Close()
	}()

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return false, fmt.Errorf("extract text of page %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) != "" {
			return true, nil
		}
	}

	return false, nil
}
