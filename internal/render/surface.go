// Package render applies decoded status snapshots to an abstract tabular
// surface: per-channel cells, measure/burn row marks, progress bars, the
// action button and the outcome banner.
//
// Renderers keep the last values they wrote and only touch the surface when a
// value changes, so re-rendering an unchanged snapshot performs no writes.
// Every individual write is self-contained; a surface never observes a
// half-applied cell.
package render

import (
	"math"
	"strconv"

	"github.com/ShayCichocki/trimwatch/internal/geometry"
)

// Column identifies a text cell in a channel row.
type Column int

const (
	ColStep Column = iota
	ColInitial
	ColCurrent
	ColState
)

// Columns lists the text columns in display order.
var Columns = []Column{ColStep, ColInitial, ColCurrent, ColState}

// String returns the column header.
func (c Column) String() string {
	switch c {
	case ColStep:
		return "Step"
	case ColInitial:
		return "Initial, Hz"
	case ColCurrent:
		return "Current, Hz"
	case ColState:
		return "State"
	default:
		return "?"
	}
}

// Mark is a row highlight class.
type Mark int

const (
	// MarkMeasure flags the channel being measured.
	MarkMeasure Mark = iota
	// MarkBurn flags the channel being burned.
	MarkBurn
)

// String returns the highlight class name.
func (m Mark) String() string {
	if m == MarkBurn {
		return "burning"
	}
	return "measuring"
}

// BannerKind classifies the outcome banner.
type BannerKind int

const (
	BannerNone BannerKind = iota
	BannerSuccess
	BannerError
)

// Banner is the user-visible notification line.
type Banner struct {
	Kind BannerKind
	Text string
}

// ButtonLabel is the label of the start/cancel action.
type ButtonLabel string

const (
	ButtonStart ButtonLabel = "Start"
	ButtonStop  ButtonLabel = "Stop"
)

// Surface is the rendering target. Implementations are called from a single
// logical flow and need no locking of their own for renderer calls.
type Surface interface {
	SetCellText(row int, col Column, text string)
	SetRowMark(row int, mark Mark, on bool)
	SetProgress(row int, bar geometry.Bar)
	SetBanner(b Banner)
	SetButton(label ButtonLabel)
	SetProgressText(text string)
}

// Placeholder is shown for values the controller did not report.
const Placeholder = "-"

// FormatFreq renders a frequency with exactly two decimals.
func FormatFreq(f *float64) string {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return Placeholder
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}
