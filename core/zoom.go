package core

import (
	"math"
	"slices"
)

// DefaultZoomLevels are the discrete steps offered by the zoom buttons.
var DefaultZoomLevels = []float64{1, 2, 3}

type (
	// ZoomState is a point-in-time copy of the zoom controller.
	ZoomState struct {
		Factor float64   `json:"factor"`
		Levels []float64 `json:"levels"`
		Min    float64   `json:"min"`
		Max    float64   `json:"max"`
	}

	// ZoomController owns the live zoom factor. Levels are only used for
	// discrete stepping; gestures may land anywhere in [Min, Max].
	ZoomController struct {
		factor   float64
		levels   []float64
		min, max float64
		onChange func(ZoomState)
	}
)

// NewZoomController creates a controller at factor 1. Levels are sorted and
// deduplicated; with no levels DefaultZoomLevels is used. Min and Max are the
// first and last level.
func NewZoomController(levels ...float64) *ZoomController {
	if len(levels) == 0 {
		levels = DefaultZoomLevels
	}
	lv := slices.Clone(levels)
	slices.Sort(lv)
	lv = slices.Compact(lv)

	z := &ZoomController{levels: lv, min: lv[0], max: lv[len(lv)-1]}
	z.factor = z.clamp(1)
	return z
}

// OnChange registers the display-layer listener called after every change.
func (z *ZoomController) OnChange(fn func(ZoomState)) {
	z.onChange = fn
}

// Factor returns the current zoom factor.
func (z *ZoomController) Factor() float64 {
	return z.factor
}

// State returns a copy of the controller state.
func (z *ZoomController) State() ZoomState {
	return ZoomState{
		Factor: z.factor,
		Levels: slices.Clone(z.levels),
		Min:    z.min,
		Max:    z.max,
	}
}

// SetZoom sets the factor, clamping silently to [Min, Max].
func (z *ZoomController) SetZoom(level float64) {
	if math.IsNaN(level) {
		return
	}
	z.factor = z.clamp(level)
	z.notify()
}

// StepNext moves to the level after the one closest to the current factor.
// It is a no-op on the last level.
func (z *ZoomController) StepNext() {
	i := z.closestLevel()
	if i < len(z.levels)-1 {
		z.SetZoom(z.levels[i+1])
	}
}

// StepPrevious moves to the level before the one closest to the current
// factor. It is a no-op on the first level.
func (z *ZoomController) StepPrevious() {
	i := z.closestLevel()
	if i > 0 {
		z.SetZoom(z.levels[i-1])
	}
}

// ApplyPinch scales baseZoom by the ratio of finger distances. Calls with a
// non-positive initial distance are ignored.
func (z *ZoomController) ApplyPinch(initialDistance, currentDistance, baseZoom float64) {
	if initialDistance <= 0 {
		return
	}
	z.SetZoom(baseZoom * currentDistance / initialDistance)
}

// ToggleDoubleTap flips between 1x and 2x. Any factor other than exactly 1
// goes back to 1.
func (z *ZoomController) ToggleDoubleTap() {
	if z.factor == 1 {
		z.SetZoom(2)
		return
	}
	z.SetZoom(1)
}

// Reset re-initialises the factor to 1.
func (z *ZoomController) Reset() {
	z.SetZoom(1)
}

func (z *ZoomController) clamp(v float64) float64 {
	return math.Max(z.min, math.Min(z.max, v))
}

func (z *ZoomController) closestLevel() int {
	best := 0
	for i, lv := range z.levels {
		if math.Abs(lv-z.factor) < math.Abs(z.levels[best]-z.factor) {
			best = i
		}
	}
	return best
}

func (z *ZoomController) notify() {
	if z.onChange != nil {
		z.onChange(z.State())
	}
}
