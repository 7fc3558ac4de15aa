package render

import (
	"strconv"

	"github.com/ShayCichocki/trimwatch/internal/geometry"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// Settings are the operator values the table renders against.
type Settings struct {
	Target    float64
	Precision float64
	Geometry  geometry.Options
}

// rowCache holds what was last written for one row.
type rowCache struct {
	cells   [numColumns]string
	written [numColumns]bool
	marks   [2]bool
	bar     geometry.Bar
	hasBar  bool
}

const numColumns = 4

// Table renders channel rows and keeps the per-row cache used for diffing.
type Table struct {
	surface Surface
	rows    []*rowCache
}

// NewTable creates a Table writing to surface.
func NewTable(surface Surface) *Table {
	return &Table{surface: surface}
}

// Apply writes the snapshot's resonator rows and highlights. Cells, marks and
// bars whose value did not change are not written.
func (t *Table) Apply(snap status.Snapshot, settings Settings) {
	for _, rec := range snap.Resonators {
		if !rec.ID.Valid() {
			continue
		}
		row := int(rec.ID)
		rc := t.row(row)

		t.setCell(row, rc, ColStep, strconv.Itoa(rec.CurrentStep))
		t.setCell(row, rc, ColInitial, FormatFreq(rec.InitialFreq))
		t.setCell(row, rc, ColCurrent, FormatFreq(rec.CurrentFreq))
		t.setCell(row, rc, ColState, FormatState(rec.State))

		bar := geometry.Compute(geometry.Input{
			Initial:   rec.Initial(),
			Current:   rec.Current(),
			Target:    settings.Target,
			Precision: settings.Precision,
		}, settings.Geometry)
		if !rc.hasBar || !sameBar(rc.bar, bar) {
			t.surface.SetProgress(row, bar)
			rc.bar = bar
			rc.hasBar = true
		}
	}

	t.setMark(MarkMeasure, snap.MeasureChannel)
	t.setMark(MarkBurn, snap.BurnChannel)
}

// ClearMarks removes measure and burn highlights from every row.
func (t *Table) ClearMarks() {
	t.setMark(MarkMeasure, nil)
	t.setMark(MarkBurn, nil)
}

// Forget drops the cache so the next Apply rewrites everything.
func (t *Table) Forget() {
	t.rows = nil
}

// Rows returns the number of rows the table has seen.
func (t *Table) Rows() int {
	return len(t.rows)
}

func (t *Table) row(row int) *rowCache {
	for len(t.rows) <= row {
		t.rows = append(t.rows, &rowCache{})
	}
	return t.rows[row]
}

func (t *Table) setCell(row int, rc *rowCache, col Column, text string) {
	if rc.written[col] && rc.cells[col] == text {
		return
	}
	t.surface.SetCellText(row, col, text)
	rc.cells[col] = text
	rc.written[col] = true
}

// setMark keeps mark on the row of ch only; nil or an out-of-range id clears
// it everywhere.
func (t *Table) setMark(mark Mark, ch *status.ChannelID) {
	target := -1
	if ch != nil && ch.Valid() {
		target = int(*ch)
		t.row(target)
	}
	for row, rc := range t.rows {
		want := row == target
		if rc.marks[mark] == want {
			continue
		}
		t.surface.SetRowMark(row, mark, want)
		rc.marks[mark] = want
	}
}

// sameBar compares bars treating NaN positions as equal.
func sameBar(a, b geometry.Bar) bool {
	return a.Empty == b.Empty &&
		a.Color == b.Color &&
		sameFloat(a.Fill, b.Fill) &&
		sameFloat(a.TargetMarker, b.TargetMarker) &&
		sameFloat(a.MinMarker, b.MinMarker) &&
		sameFloat(a.MaxMarker, b.MaxMarker)
}

func sameFloat(a, b float64) bool {
	return a == b || (a != a && b != b)
}

// FormatState renders a state code verbatim, prefixed with its icon when the
// code is one the controller documents.
func FormatState(s status.StateCode) string {
	if s == "" {
		return Placeholder
	}
	if icon := s.Icon(); icon != "" && icon != Placeholder {
		return icon + " " + string(s)
	}
	return string(s)
}
