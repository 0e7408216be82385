package core

import (
	"math"
	"time"
)

// DoubleTapWindow is the longest gap between two taps that still counts as a
// double tap.
const DoubleTapWindow = 500 * time.Millisecond

type (
	// Point is a touch position in client coordinates.
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// PinchTracker turns two-finger touch events into ApplyPinch calls.
	PinchTracker struct {
		zoom            *ZoomController
		initialDistance float64
		initialZoom     float64
	}

	// TapDetector recognises double taps from tap timestamps.
	TapDetector struct {
		lastTap time.Time
	}
)

// NewPinchTracker binds a tracker to zoom.
func NewPinchTracker(zoom *ZoomController) *PinchTracker {
	return &PinchTracker{zoom: zoom}
}

// Start records the finger distance and the zoom at gesture start.
func (p *PinchTracker) Start(a, b Point) {
	p.initialDistance = distance(a, b)
	p.initialZoom = p.zoom.Factor()
}

// Move updates the zoom for the current finger positions. It does nothing
// until Start has seen two distinct points.
func (p *PinchTracker) Move(a, b Point) {
	if p.initialDistance <= 0 {
		return
	}
	p.zoom.ApplyPinch(p.initialDistance, distance(a, b), p.initialZoom)
}

// End forgets the gesture.
func (p *PinchTracker) End() {
	p.initialDistance = 0
}

// Tap registers a tap at now and reports whether it completes a double tap.
func (t *TapDetector) Tap(now time.Time) bool {
	gap := now.Sub(t.lastTap)
	double := !t.lastTap.IsZero() && gap > 0 && gap < DoubleTapWindow
	t.lastTap = now
	return double
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
