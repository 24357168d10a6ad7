// Package codegen draws random coupon codes and keeps drawing until one is
// accepted as unique by the caller's reservation callback.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog/log"
)

// Named character sets accepted by ResolveCharset.
const (
	Numbers      = "0123456789"
	Alphabetic   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Alphanumeric = Numbers + Alphabetic
)

// ErrCodeSpaceExhausted is returned when every draw within the retry budget collided.
// It indicates that the code length is too small for the issuance volume.
var ErrCodeSpaceExhausted = errors.New("coupon code space exhausted")

// ErrInvalidParams is returned by New for unusable generator settings.
var ErrInvalidParams = errors.New("invalid code generator parameters")

// ReserveFunc atomically claims code system-wide.
// It returns false when the code is already taken.
type ReserveFunc func(ctx context.Context, code string) (bool, error)

// Generator produces fixed-length, case-sensitive codes over a charset.
// It is safe for concurrent use when its random source is.
type Generator struct {
	charset    []byte
	length     int
	maxRetries int
	random     io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandom replaces crypto/rand as the source of randomness.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// ResolveCharset maps "alphanumeric", "numbers" and "alphabetic" to their
// characters. Any other value is used literally as the charset.
func ResolveCharset(name string) string {
	switch name {
	case "", "alphanumeric":
		return Alphanumeric
	case "numbers":
		return Numbers
	case "alphabetic":
		return Alphabetic
	default:
		return name
	}
}

// New creates a Generator. charset is resolved with ResolveCharset.
func New(charset string, length, maxRetries int, opts ...Option) (*Generator, error) {
	chars := ResolveCharset(charset)
	if len(chars) < 2 || len(chars) > 256 {
		return nil, fmt.Errorf("%w: charset must have between 2 and 256 characters, got %d", ErrInvalidParams, len(chars))
	}
	if length < 1 {
		return nil, fmt.Errorf("%w: length must be positive, got %d", ErrInvalidParams, length)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	g := &Generator{
		charset:    []byte(chars),
		length:     length,
		maxRetries: maxRetries,
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Length returns the code length.
func (g *Generator) Length() int { return g.length }

// Combinations returns the size of the code space.
func (g *Generator) Combinations() float64 {
	return math.Pow(float64(len(g.charset)), float64(g.length))
}

// Draw returns one random code without any uniqueness check.
// Bytes that would bias the distribution are rejected and redrawn.
func (g *Generator) Draw() (string, error) {
	n := len(g.charset)
	limit := 256 - (256 % n)

	code := make([]byte, 0, g.length)
	buf := make([]byte, g.length)
	for len(code) < g.length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, g.charset[int(b)%n])
			if len(code) == g.length {
				break
			}
		}
	}
	return string(code), nil
}

// Generate draws codes until reserve accepts one.
// Returns ErrCodeSpaceExhausted once maxRetries draws have collided.
func (g *Generator) Generate(ctx context.Context, reserve ReserveFunc) (string, error) {
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := g.Draw()
		if err != nil {
			return "", err
		}

		ok, err := reserve(ctx, code)
		if err != nil {
			return "", fmt.Errorf("reserve code: %w", err)
		}
		if ok {
			return code, nil
		}

		log.Debug().
			Int("attempt", attempt).
			Int("max_retries", g.maxRetries).
			Msg("coupon code collision, redrawing")
	}

	return "", fmt.Errorf("%w: %d collisions in a row (length %d, %.0f combinations)",
		ErrCodeSpaceExhausted, g.maxRetries, g.length, g.Combinations())
}
