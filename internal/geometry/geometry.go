// Package geometry maps a resonator's frequency trajectory onto a normalized
// 0-100% progress scale with minimum, target and maximum markers.
//
// Compute is a pure function: identical inputs always yield identical bars.
// Positions are not clamped; rendering surfaces clamp with Clamp.
package geometry

import "math"

// DefaultAnchorEpsilon is the frequency change (Hz) below which a channel is
// considered not to have moved from its initial frequency.
const DefaultAnchorEpsilon = 0.2

// maxMarkerInRange is the fixed max-marker position while the ceiling is ahead.
const maxMarkerInRange = 99

// Color classifies the fill of a bar.
type Color int

const (
	// ColorNone is used for empty bars.
	ColorNone Color = iota
	// ColorGreen means the current frequency is inside the tolerance window.
	ColorGreen
	// ColorAmber means the current frequency is still below the tolerance window.
	ColorAmber
	// ColorRed means the current frequency overshot the ceiling.
	ColorRed
)

// String returns the color name.
func (c Color) String() string {
	switch c {
	case ColorGreen:
		return "green"
	case ColorAmber:
		return "amber"
	case ColorRed:
		return "red"
	default:
		return "none"
	}
}

// Input is one channel's trajectory plus the operator settings.
type Input struct {
	// Initial is the frequency at the start of adjustment, 0 if unset.
	Initial float64
	// Current is the latest measured frequency.
	Current float64
	// Target is the operator-set target frequency.
	Target float64
	// Precision is the tolerance half-width in Hz.
	Precision float64
}

// Options tunes Compute.
type Options struct {
	// AnchorEpsilon replaces DefaultAnchorEpsilon when positive.
	AnchorEpsilon float64
}

func (o Options) epsilon() float64 {
	if o.AnchorEpsilon > 0 {
		return o.AnchorEpsilon
	}
	return DefaultAnchorEpsilon
}

// Bar is the normalized geometry of a progress indicator. All positions are
// percentages of the bar width.
type Bar struct {
	// Empty is set when the channel has not started and no scale is drawn.
	Empty        bool
	Fill         float64
	TargetMarker float64
	MinMarker    float64
	MaxMarker    float64
	Color        Color
}

// EmptyBar is the neutral state for channels that have not started.
var EmptyBar = Bar{Empty: true}

// Limits is the tolerance window around a target.
type Limits struct {
	Min    float64
	Target float64
	Max    float64
}

// LimitsFor returns the tolerance window for target ± precision.
func LimitsFor(target, precision float64) Limits {
	return Limits{
		Min:    target - precision,
		Target: target,
		Max:    target + precision,
	}
}

// Contains reports whether f lies inside the window (inclusive).
func (l Limits) Contains(f float64) bool {
	return f >= l.Min && f <= l.Max
}

// Compute converts a trajectory into bar geometry.
func Compute(in Input, opts Options) Bar {
	initial, current := in.Initial, in.Current

	if initial == 0 && current != 0 {
		return EmptyBar
	}

	lim := LimitsFor(in.Target, in.Precision)

	// Keep the left anchor strictly left of the window so the scale never
	// collapses while the channel has not moved.
	if current < initial || math.Abs(current-initial) < opts.epsilon() {
		initial = math.Min(initial-2*in.Precision, lim.Min)
	}

	var bar Bar
	var unit float64
	if lim.Max > current {
		unit = (lim.Max - initial) / 100
		bar.Fill = (current - initial) / unit
		bar.MaxMarker = maxMarkerInRange
		if current > lim.Min {
			bar.Color = ColorGreen
		} else {
			bar.Color = ColorAmber
		}
	} else {
		unit = (current - initial) / 100
		bar.Fill = 100
		bar.Color = ColorRed
		bar.MaxMarker = (lim.Max-initial)/unit - 1
	}

	bar.TargetMarker = (lim.Target-initial)/unit - 1
	bar.MinMarker = (lim.Min - initial) / unit
	return bar
}

// Clamp limits a position to [0, 100]. NaN maps to 0.
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
