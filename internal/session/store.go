// Package session keeps the badge face crop between the photo validation
// request and the document match request of the same user session.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/imaging"
)

var (
	// ErrNotFound is returned when no badge face is stored for the session
	ErrNotFound = errors.New("badge face not found")
	// ErrExpired is returned when the stored badge face outlived its TTL
	ErrExpired = fmt.Errorf("badge face expired: %w", ErrNotFound)
)

// BadgeFace is a validated badge crop, JPEG encoded.
type BadgeFace struct {
	Image     []byte    `json:"image"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewBadgeFace encodes crop for storage.
func NewBadgeFace(crop image.Image) (*BadgeFace, error) {
	data, err := imaging.EncodeJPEG(crop)
	if err != nil {
		return nil, fmt.Errorf("encode badge face: %w", err)
	}
	b := crop.Bounds()
	return &BadgeFace{Image: data, Width: b.Dx(), Height: b.Dy()}, nil
}

// Decode returns the stored crop as an image.
func (f *BadgeFace) Decode() (image.Image, error) {
	img, _, err := imaging.Decode(f.Image)
	if err != nil {
		return nil, fmt.Errorf("decode badge face: %w", err)
	}
	return img, nil
}

func (f *BadgeFace) expired(now time.Time) bool {
	return !f.ExpiresAt.IsZero() && now.After(f.ExpiresAt)
}

// stamp sets the storage timestamps on a copy of f
func stamp(f *BadgeFace, now time.Time, ttl time.Duration) *BadgeFace {
	c := *f
	c.StoredAt = now
	c.ExpiresAt = now.Add(ttl)
	return &c
}

// Store persists at most one badge face per session. Save overwrites.
type Store interface {
	Save(ctx context.Context, sessionID string, face *BadgeFace, ttl time.Duration) error
	// Load returns ErrNotFound (or ErrExpired) when nothing usable is stored.
	Load(ctx context.Context, sessionID string) (*BadgeFace, error)
	// Delete is a no-op for unknown sessions.
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}
