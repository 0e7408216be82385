// Package compositor renders still frames that match the live preview: the
// same zoom crop and the same brightness filter, at source resolution.
package compositor

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strconv"

	"github.com/webseed87/camera/core"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultThumbnailWidth matches the gallery thumbnail strip.
const DefaultThumbnailWidth = 300

type (
	// Compositor applies zoom and filter state to source frames.
	Compositor struct {
		// Interpolator scales the zoom crop and thumbnails.
		Interpolator xdraw.Interpolator
	}

	// Style is the CSS projection of the live state for the preview element.
	Style struct {
		Transform string `json:"transform"`
		Filter    string `json:"filter"`
	}
)

// New returns a compositor using bilinear scaling, the closest match to
// browser canvas smoothing.
func New() *Compositor {
	return &Compositor{Interpolator: xdraw.BiLinear}
}

// Compose renders frame with the zoom crop and the filter applied. The result
// always has the frame's pixel dimensions. A frame with no pixels fails with
// core.ErrNotReady.
func (c *Compositor) Compose(frame core.SourceFrame, zoom core.ZoomState, filter core.FilterState) (*image.RGBA, error) {
	if !frame.Ready() {
		return nil, fmt.Errorf("compose %dx%d frame: %w", frame.Width, frame.Height, core.ErrNotReady)
	}

	w, h := frame.Width, frame.Height
	src := frame.Image
	sb := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	if zoom.Factor > 1 {
		c.drawZoomed(dst, src, zoom.Factor)
	} else {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Src)
	}

	applyBrightness(dst, filter.Brightness)
	return dst, nil
}

// drawZoomed scales the centred (w/f, h/f) window of src onto dst.
func (c *Compositor) drawZoomed(dst *image.RGBA, src image.Image, factor float64) {
	sb := src.Bounds()
	w, h := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())
	cropW, cropH := w/factor, h/factor
	offX := float64(sb.Min.X) + (w-cropW)/2
	offY := float64(sb.Min.Y) + (h-cropH)/2

	// Source-to-destination affine: dst = (src - off) * factor.
	s2d := f64.Aff3{
		factor, 0, -offX * factor,
		0, factor, -offY * factor,
	}
	crop := image.Rect(
		int(math.Floor(offX)), int(math.Floor(offY)),
		int(math.Ceil(offX+cropW)), int(math.Ceil(offY+cropH)),
	).Intersect(sb)

	c.interpolator().Transform(dst, s2d, src, crop, xdraw.Src, nil)
}

// Thumbnail downscales img to width, keeping the aspect ratio. Width <= 0
// uses DefaultThumbnailWidth.
func (c *Compositor) Thumbnail(img image.Image, width int) *image.RGBA {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	b := img.Bounds()
	height := int(math.Round(float64(width) * float64(b.Dy()) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	c.interpolator().Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// PreviewStyle projects the same state Compose uses onto CSS for the live
// <video> element.
func (c *Compositor) PreviewStyle(zoom core.ZoomState, filter core.FilterState) Style {
	return Style{
		Transform: "scale(" + strconv.FormatFloat(zoom.Factor, 'f', -1, 64) + ")",
		Filter:    filter.StyleDescriptor(),
	}
}

func (c *Compositor) interpolator() xdraw.Interpolator {
	if c.Interpolator == nil {
		return xdraw.BiLinear
	}
	return c.Interpolator
}

// applyBrightness multiplies colour channels like CSS brightness(). dst holds
// premultiplied alpha, so clamping each channel to alpha is the same as
// clamping the straight colour to 1.
func applyBrightness(dst *image.RGBA, brightness float64) {
	if brightness == 1 {
		return
	}
	brightness = math.Max(0, brightness)
	pix := dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		a := float64(pix[i+3])
		if a == 0 {
			continue
		}
		for j := 0; j < 3; j++ {
			v := float64(pix[i+j])*brightness + 0.5
			if v > a {
				v = a
			}
			pix[i+j] = uint8(v)
		}
	}
}
