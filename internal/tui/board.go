package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/trimwatch/internal/geometry"
	"github.com/ShayCichocki/trimwatch/internal/render"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// barWidth is the number of cells in a progress bar.
const barWidth = 30

type boardRow struct {
	cells  [4]string
	marks  [2]bool
	bar    geometry.Bar
	hasBar bool
}

// Board is an in-memory render.Surface drawn with lipgloss.
type Board struct {
	rows         []*boardRow
	banner       render.Banner
	button       render.ButtonLabel
	progressText string
	writes       int

	// Styles
	headerStyle  lipgloss.Style
	columnStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	measureStyle lipgloss.Style
	burnStyle    lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	buttonStyle  lipgloss.Style
	emptyStyle   lipgloss.Style
	markerStyle  lipgloss.Style
	targetStyle  lipgloss.Style
	fillStyles   map[geometry.Color]lipgloss.Style
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{
		button: render.ButtonStart,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),

		columnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		cellStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		measureStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),

		burnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true),

		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		buttonStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),

		emptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		markerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")),

		targetStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")),

		fillStyles: map[geometry.Color]lipgloss.Style{
			geometry.ColorGreen: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
			geometry.ColorAmber: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			geometry.ColorRed:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			geometry.ColorNone:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

// row returns row i, growing the grid as needed. Rows outside the channel
// range are not stored and yield nil.
func (b *Board) row(i int) *boardRow {
	if !status.ChannelID(i).Valid() {
		return nil
	}
	for len(b.rows) <= i {
		r := &boardRow{}
		for c := range r.cells {
			r.cells[c] = render.Placeholder
		}
		b.rows = append(b.rows, r)
	}
	return b.rows[i]
}

// SetCellText implements render.Surface.
func (b *Board) SetCellText(row int, col render.Column, text string) {
	b.writes++
	if r := b.row(row); r != nil {
		r.cells[col] = text
	}
}

// SetRowMark implements render.Surface.
func (b *Board) SetRowMark(row int, mark render.Mark, on bool) {
	b.writes++
	if r := b.row(row); r != nil {
		r.marks[mark] = on
	}
}

// SetProgress implements render.Surface.
func (b *Board) SetProgress(row int, bar geometry.Bar) {
	b.writes++
	if r := b.row(row); r != nil {
		r.bar = bar
		r.hasBar = true
	}
}

// SetBanner implements render.Surface.
func (b *Board) SetBanner(banner render.Banner) {
	b.writes++
	b.banner = banner
}

// SetButton implements render.Surface.
func (b *Board) SetButton(label render.ButtonLabel) {
	b.writes++
	b.button = label
}

// SetProgressText implements render.Surface.
func (b *Board) SetProgressText(text string) {
	b.writes++
	b.progressText = text
}

// Writes returns the number of surface writes so far.
func (b *Board) Writes() int {
	return b.writes
}

// Banner returns the banner currently shown.
func (b *Board) Banner() render.Banner {
	return b.banner
}

// Button returns the action label currently shown.
func (b *Board) Button() render.ButtonLabel {
	return b.button
}

// ProgressText returns the phase line text.
func (b *Board) ProgressText() string {
	return b.progressText
}

// Marked returns the rows carrying mark.
func (b *Board) Marked(mark render.Mark) []int {
	var rows []int
	for i, r := range b.rows {
		if r.marks[mark] {
			rows = append(rows, i)
		}
	}
	return rows
}

// Cell returns the text of one cell, or the placeholder for unknown rows.
func (b *Board) Cell(row int, col render.Column) string {
	if row < 0 || row >= len(b.rows) {
		return render.Placeholder
	}
	return b.rows[row].cells[col]
}

// ViewTable renders the channel table.
func (b *Board) ViewTable() string {
	var sb strings.Builder

	widths := []int{4, 6, 12, 12, 14}
	header := []string{"#"}
	for _, c := range render.Columns {
		header = append(header, c.String())
	}
	sb.WriteString("    ")
	for i, h := range header {
		sb.WriteString(b.columnStyle.Render(pad(h, widths[i])))
	}
	sb.WriteString(b.columnStyle.Render("Progress"))
	sb.WriteString("\n")

	if len(b.rows) == 0 {
		sb.WriteString(b.emptyStyle.Render("    No channels reported"))
		sb.WriteString("\n")
		return sb.String()
	}

	for i, r := range b.rows {
		sb.WriteString(b.markPrefix(r))
		sb.WriteString(b.cellStyle.Render(pad(fmt.Sprintf("%d", i+1), widths[0])))
		for c := range r.cells {
			sb.WriteString(b.cellStyle.Render(pad(r.cells[c], widths[c+1])))
		}
		if r.hasBar {
			sb.WriteString(b.renderBar(r.bar, barWidth))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Board) markPrefix(r *boardRow) string {
	measure := " "
	burn := "  "
	if r.marks[render.MarkMeasure] {
		measure = b.measureStyle.Render("▶")
	}
	if r.marks[render.MarkBurn] {
		burn = b.burnStyle.Render("🔥")
	}
	return measure + burn + " "
}

// ViewBanner renders the notification line, or "" when there is none.
func (b *Board) ViewBanner() string {
	switch b.banner.Kind {
	case render.BannerSuccess:
		return b.successStyle.Render("✔ " + b.banner.Text)
	case render.BannerError:
		return b.errorStyle.Render("✘ " + b.banner.Text)
	default:
		return ""
	}
}

// ViewButton renders the start/stop action hint.
func (b *Board) ViewButton() string {
	return b.buttonStyle.Render("[s] " + string(b.button))
}

// renderBar draws a bar with min and max markers "|" and the target marker.
// Positions are clamped here; geometry leaves them unbounded.
func (b *Board) renderBar(bar geometry.Bar, width int) string {
	if bar.Empty {
		return b.emptyStyle.Render(strings.Repeat("░", width))
	}

	cells := make([]string, width)
	filled := int(math.Round(geometry.Clamp(bar.Fill) / 100 * float64(width)))
	fill := b.fillStyles[bar.Color]
	for i := range cells {
		if i < filled {
			cells[i] = fill.Render("█")
		} else {
			cells[i] = b.emptyStyle.Render("░")
		}
	}

	cells[markerIndex(bar.MinMarker, width)] = b.markerStyle.Render("|")
	cells[markerIndex(bar.MaxMarker, width)] = b.markerStyle.Render("|")
	cells[markerIndex(bar.TargetMarker, width)] = b.targetStyle.Render("◆")

	return strings.Join(cells, "")
}

// markerIndex maps a 0-100 position onto a cell index.
func markerIndex(pos float64, width int) int {
	idx := int(geometry.Clamp(pos) / 100 * float64(width-1))
	if idx < 0 {
		return 0
	}
	if idx >= width {
		return width - 1
	}
	return idx
}

// pad right-pads s to width using display width.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-w)
}

var _ render.Surface = (*Board)(nil)
