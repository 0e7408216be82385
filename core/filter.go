package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

const (
	MinBrightness     = 0.3
	MaxBrightness     = 2.0
	DefaultBrightness = 1.0
)

var brightnessPattern = regexp.MustCompile(`brightness\(\s*([^)\s]+)\s*\)`)

// FilterState holds the live filter values. The numeric value is the source
// of truth; StyleDescriptor is derived from it.
type FilterState struct {
	Brightness float64 `json:"brightness"`

	onChange func(FilterState)
}

// NewFilterState returns a filter at default brightness.
func NewFilterState() *FilterState {
	return &FilterState{Brightness: DefaultBrightness}
}

// OnChange registers the display-layer listener called after every change.
func (f *FilterState) OnChange(fn func(FilterState)) {
	f.onChange = fn
}

// State returns a copy without the listener.
func (f *FilterState) State() FilterState {
	return FilterState{Brightness: f.Brightness}
}

// AdjustBrightness adds delta and clamps to [MinBrightness, MaxBrightness].
func (f *FilterState) AdjustBrightness(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	f.Brightness = clampBrightness(f.Brightness + delta)
	if f.onChange != nil {
		f.onChange(f.State())
	}
}

// StyleDescriptor renders the CSS filter string shared by the live preview
// and the capture compositor.
func (f FilterState) StyleDescriptor() string {
	return "brightness(" + strconv.FormatFloat(f.Brightness, 'f', -1, 64) + ")"
}

// IsIdentity reports whether the filter leaves pixels unchanged.
func (f FilterState) IsIdentity() bool {
	return f.Brightness == 1
}

// ParseStyleDescriptor reads a filter state back from a descriptor. Other
// filter functions in the string are ignored; a missing brightness term means
// the default.
func ParseStyleDescriptor(s string) (FilterState, error) {
	m := brightnessPattern.FindStringSubmatch(s)
	if m == nil {
		return FilterState{Brightness: DefaultBrightness}, nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return FilterState{}, fmt.Errorf("invalid brightness %q in filter descriptor", m[1])
	}
	return FilterState{Brightness: clampBrightness(v)}, nil
}

func clampBrightness(v float64) float64 {
	return math.Max(MinBrightness, math.Min(MaxBrightness, v))
}
