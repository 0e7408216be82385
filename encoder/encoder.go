// Package encoder is the platform image encoder used for captures.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/webseed87/camera/core"
)

// Standard encodes with the standard library JPEG and PNG codecs.
type Standard struct{}

// New returns the standard encoder.
func New() Standard {
	return Standard{}
}

// Encode implements core.ImageEncoder. Quality maps [0, 1] onto the JPEG
// quality scale; out-of-range values are clamped.
func (Standard) Encode(img image.Image, format core.Format, quality float64) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode: nil image")
	}

	var buf bytes.Buffer
	switch format {
	case core.FormatJPEG, "":
		q := int(math.Round(math.Max(0, math.Min(1, quality)) * 100))
		if q < 1 {
			q = 1
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case core.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("encode: unsupported format %q", format)
	}
	return buf.Bytes(), nil
}
