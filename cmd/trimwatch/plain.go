package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/ShayCichocki/trimwatch/internal/geometry"
	"github.com/ShayCichocki/trimwatch/internal/render"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// plainRow is what the plain surface knows about one channel.
type plainRow struct {
	cells   [4]string
	measure bool
	burn    bool
	bar     geometry.Bar
	hasBar  bool
}

// plainSurface collects renderer writes and prints the rows they touched as
// one line each when flushed.
type plainSurface struct {
	rows    map[int]*plainRow
	dirty   map[int]bool
	pending []string
}

func newPlainSurface() *plainSurface {
	return &plainSurface{
		rows:  make(map[int]*plainRow),
		dirty: make(map[int]bool),
	}
}

func (s *plainSurface) row(i int) *plainRow {
	r, ok := s.rows[i]
	if !ok {
		r = &plainRow{}
		s.rows[i] = r
	}
	s.dirty[i] = true
	return r
}

func (s *plainSurface) SetCellText(row int, col render.Column, text string) {
	s.row(row).cells[col] = text
}

func (s *plainSurface) SetRowMark(row int, mark render.Mark, on bool) {
	r := s.row(row)
	if mark == render.MarkBurn {
		r.burn = on
	} else {
		r.measure = on
	}
}

func (s *plainSurface) SetProgress(row int, bar geometry.Bar) {
	r := s.row(row)
	r.bar = bar
	r.hasBar = true
}

func (s *plainSurface) SetBanner(b render.Banner) {
	switch b.Kind {
	case render.BannerSuccess:
		s.pending = append(s.pending, color.GreenString("✔ %s", b.Text))
	case render.BannerError:
		s.pending = append(s.pending, color.RedString("✘ %s", b.Text))
	}
}

// SetButton is a no-op: plain mode has no actions.
func (s *plainSurface) SetButton(render.ButtonLabel) {}

func (s *plainSurface) SetProgressText(text string) {
	s.pending = append(s.pending, color.New(color.Bold).Sprintf("» %s", text))
}

// flush prints pending lines and then every touched row in channel order.
func (s *plainSurface) flush(w io.Writer) {
	for _, line := range s.pending {
		fmt.Fprintln(w, line)
	}
	s.pending = s.pending[:0]

	rows := make([]int, 0, len(s.dirty))
	for i := range s.dirty {
		rows = append(rows, i)
	}
	sort.Ints(rows)
	for _, i := range rows {
		fmt.Fprintln(w, formatPlainRow(i, s.rows[i]))
	}
	clear(s.dirty)
}

func formatPlainRow(i int, r *plainRow) string {
	var marks strings.Builder
	if r.measure {
		marks.WriteString("▶")
	}
	if r.burn {
		marks.WriteString("🔥")
	}

	line := fmt.Sprintf("ch %02d %-3s step %-4s %10s → %-10s %-12s",
		i+1, marks.String(),
		orPlaceholder(r.cells[render.ColStep]),
		orPlaceholder(r.cells[render.ColInitial]),
		orPlaceholder(r.cells[render.ColCurrent]),
		orPlaceholder(r.cells[render.ColState]))
	return strings.TrimRight(line, " ") + " " + formatPlainBar(r)
}

func formatPlainBar(r *plainRow) string {
	if !r.hasBar || r.bar.Empty {
		return "[     -]"
	}
	text := fmt.Sprintf("[%5.1f%%]", geometry.Clamp(r.bar.Fill))
	switch r.bar.Color {
	case geometry.ColorGreen:
		return color.GreenString(text)
	case geometry.ColorAmber:
		return color.YellowString(text)
	case geometry.ColorRed:
		return color.RedString(text)
	default:
		return text
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return render.Placeholder
	}
	return s
}

// plainSink drives a render.Monitor over a plainSurface. The supervisor and
// the config watcher call it from different goroutines.
type plainSink struct {
	mu      sync.Mutex
	out     io.Writer
	surface *plainSurface
	monitor *render.Monitor
}

func newPlainSink(out io.Writer, settings render.Settings) *plainSink {
	surface := newPlainSurface()
	return &plainSink{
		out:     out,
		surface: surface,
		monitor: render.NewMonitor(surface, settings),
	}
}

func (s *plainSink) Render(snap status.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.Render(snap)
	s.surface.flush(s.out)
}

func (s *plainSink) Reset(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.Reset(label)
	s.surface.flush(s.out)
}

func (s *plainSink) Failure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.Failure(err)
	s.surface.flush(s.out)
}

func (s *plainSink) SetSettings(settings render.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.SetSettings(settings)
	s.surface.flush(s.out)
}
