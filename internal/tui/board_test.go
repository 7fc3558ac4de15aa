package tui

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/trimwatch/internal/geometry"
	"github.com/ShayCichocki/trimwatch/internal/render"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

func f(v float64) *float64 { return &v }

func ch(v int) *status.ChannelID {
	id := status.ChannelID(v)
	return &id
}

func sampleSnapshot() status.Snapshot {
	return status.Snapshot{
		Phase:          status.Phase{Kind: status.PhaseAdjusting},
		ProgressText:   "Adjusting channel 2",
		MeasureChannel: ch(0),
		BurnChannel:    ch(1),
		Resonators: []status.ResonatorRecord{
			{ID: 0, CurrentStep: 4, InitialFreq: f(32700), CurrentFreq: f(32767.9), State: status.StateOK},
			{ID: 1, CurrentStep: 2, InitialFreq: f(32700), CurrentFreq: f(32740), State: status.StateLower},
			{ID: 2, CurrentStep: 0, CurrentFreq: f(32690), State: "custom"},
		},
	}
}

func TestBoard_ImplementsSurface(t *testing.T) {
	board := NewBoard()
	m := render.NewMonitor(board, render.Settings{Target: 32768, Precision: 0.33})

	m.Render(sampleSnapshot())

	if got := board.Cell(0, render.ColCurrent); got != "32767.90" {
		t.Errorf("expected 32767.90, got %q", got)
	}
	if got := board.Cell(2, render.ColInitial); got != render.Placeholder {
		t.Errorf("expected placeholder, got %q", got)
	}
	if got := board.Cell(2, render.ColState); got != "custom" {
		t.Errorf("expected verbatim state, got %q", got)
	}
	if got := board.Cell(9, render.ColStep); got != render.Placeholder {
		t.Errorf("expected placeholder for unknown row, got %q", got)
	}
	if got := board.Marked(render.MarkBurn); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected burn on row 1, got %v", got)
	}
	if got := board.Marked(render.MarkMeasure); len(got) != 1 || got[0] != 0 {
		t.Errorf("expected measure on row 0, got %v", got)
	}
	if board.Button() != render.ButtonStop {
		t.Errorf("expected Stop, got %s", board.Button())
	}
	if board.ProgressText() != "Adjusting channel 2" {
		t.Errorf("unexpected progress text %q", board.ProgressText())
	}

	writes := board.Writes()
	m.Render(sampleSnapshot())
	if board.Writes() != writes {
		t.Errorf("expected no writes for unchanged snapshot, got %d", board.Writes()-writes)
	}
}

func TestBoard_OutOfRangeRowsNotStored(t *testing.T) {
	board := NewBoard()
	board.SetCellText(0, render.ColStep, "1")
	board.SetRowMark(20_000_000, render.MarkBurn, true)
	board.SetCellText(-1, render.ColStep, "x")
	board.SetProgress(status.MaxChannels, geometry.Bar{Fill: 50})

	if got := board.Marked(render.MarkBurn); len(got) != 0 {
		t.Errorf("expected no burn mark, got %v", got)
	}
	if got := board.Cell(0, render.ColStep); got != "1" {
		t.Errorf("expected 1, got %q", got)
	}
	if got := len(board.rows); got != 1 {
		t.Errorf("expected 1 row, got %d", got)
	}
}

func TestBoard_ViewTable(t *testing.T) {
	board := NewBoard()
	if !strings.Contains(board.ViewTable(), "No channels reported") {
		t.Error("expected empty table hint")
	}

	m := render.NewMonitor(board, render.Settings{Target: 32768, Precision: 0.33})
	m.Render(sampleSnapshot())

	view := board.ViewTable()
	for _, want := range []string{"Step", "Current, Hz", "32767.90", "✔ ok", "▽ lower", "▶", "🔥", "◆"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in table view:\n%s", want, view)
		}
	}
}

func TestBoard_ViewBanner(t *testing.T) {
	board := NewBoard()
	if board.ViewBanner() != "" {
		t.Error("expected no banner initially")
	}

	board.SetBanner(render.Banner{Kind: render.BannerError, Text: "Auto-adjust failed: Таймаут"})
	if !strings.Contains(board.ViewBanner(), "Таймаут") {
		t.Errorf("expected error text, got %q", board.ViewBanner())
	}

	board.SetBanner(render.Banner{Kind: render.BannerSuccess, Text: "ok"})
	if !strings.Contains(board.ViewBanner(), "ok") {
		t.Errorf("expected success text, got %q", board.ViewBanner())
	}
}

func TestRenderBar_ClampsPositions(t *testing.T) {
	board := NewBoard()

	bar := geometry.Bar{Fill: 250, TargetMarker: -20, MinMarker: -5, MaxMarker: 180, Color: geometry.ColorRed}
	out := board.renderBar(bar, 10)
	// Target and min share the first cell; max sits on the last one.
	if strings.Count(out, "█") != 8 {
		t.Errorf("expected 8 fill cells around the markers, got %q", out)
	}
	if !strings.Contains(out, "◆") || strings.Count(out, "|") != 1 {
		t.Errorf("expected target and one visible limit marker, got %q", out)
	}

	empty := board.renderBar(geometry.EmptyBar, 10)
	if strings.Count(empty, "░") != 10 {
		t.Errorf("expected empty bar, got %q", empty)
	}
}

func TestMarkerIndex(t *testing.T) {
	tests := []struct {
		pos  float64
		want int
	}{
		{-10, 0},
		{0, 0},
		{50, 4},
		{99, 8},
		{100, 9},
		{400, 9},
	}
	for _, tt := range tests {
		if got := markerIndex(tt.pos, 10); got != tt.want {
			t.Errorf("markerIndex(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}
