// Package qr renders coupon codes as QR PNG images.
package qr

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// ContentType and Extension describe the images produced by Renderer.
const (
	ContentType = "image/png"
	Extension   = ".png"
)

// Renderer renders square PNG QR codes of a fixed size in pixels.
type Renderer struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewRenderer creates a Renderer producing size x size images.
func NewRenderer(size int) (*Renderer, error) {
	if size < 21 {
		return nil, fmt.Errorf("qr size must be at least 21 pixels, got %d", size)
	}
	return &Renderer{size: size, level: qrcode.Medium}, nil
}

// ContentType returns the media type of rendered images.
func (r *Renderer) ContentType() string { return ContentType }

// Extension returns the file extension of rendered images, dot included.
func (r *Renderer) Extension() string { return Extension }

// Render encodes content into a PNG.
func (r *Renderer) Render(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr content must not be empty")
	}
	png, err := qrcode.Encode(content, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
