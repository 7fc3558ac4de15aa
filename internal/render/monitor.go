package render

import (
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// Monitor renders snapshots through a PhaseController and a Table sharing one
// surface. It is not safe for concurrent use; callers drive it from a single
// logical flow.
type Monitor struct {
	surface  Surface
	table    *Table
	phase    *PhaseController
	settings Settings

	progressText string
	textSet      bool
	last         *status.Snapshot
}

// NewMonitor creates a Monitor over surface.
func NewMonitor(surface Surface, settings Settings) *Monitor {
	return &Monitor{
		surface:  surface,
		table:    NewTable(surface),
		phase:    NewPhaseController(surface),
		settings: settings,
	}
}

// Render applies one snapshot.
func (m *Monitor) Render(snap status.Snapshot) {
	if m.phase.Apply(snap.Phase) {
		snap.MeasureChannel = nil
		snap.BurnChannel = nil
	}
	m.table.Apply(snap, m.settings)

	text := snap.ProgressText
	if text == "" {
		text = snap.Phase.String()
	}
	m.setProgressText(text)
	m.last = &snap
}

// Reset renders the idle phase with no resonators and the given label.
func (m *Monitor) Reset(label string) {
	m.Render(status.Snapshot{Phase: status.Idle(), ProgressText: label})
}

// Reject shows a rejected control command. Streaming is not affected.
func (m *Monitor) Reject(ack status.Acknowledgment) {
	text := ack.Error
	if text == "" {
		text = ack.Message
	}
	if text == "" {
		text = "command rejected"
	}
	m.phase.SetBanner(Banner{Kind: BannerError, Text: "Error: " + text})
}

// Notify shows a success notification for an accepted command.
func (m *Monitor) Notify(text string) {
	m.phase.SetBanner(Banner{Kind: BannerSuccess, Text: text})
}

// Failure shows a persistent transport failure banner. It stays until the
// next snapshot is rendered.
func (m *Monitor) Failure(err error) {
	text := "Connection to controller lost"
	if err != nil {
		text += ": " + err.Error()
	}
	m.phase.SetBanner(Banner{Kind: BannerError, Text: text})
}

// SetSettings replaces the operator settings and re-renders the last snapshot
// so that progress bars follow the new target.
func (m *Monitor) SetSettings(s Settings) {
	m.settings = s
	if m.last != nil {
		m.table.Apply(*m.last, s)
	}
}

// Settings returns the current operator settings.
func (m *Monitor) Settings() Settings {
	return m.settings
}

// Phase returns the last rendered phase.
func (m *Monitor) Phase() status.Phase {
	return m.phase.Phase()
}

// Button returns the current action label.
func (m *Monitor) Button() ButtonLabel {
	return m.phase.Button()
}

// Last returns the last rendered snapshot, or nil.
func (m *Monitor) Last() *status.Snapshot {
	return m.last
}

func (m *Monitor) setProgressText(text string) {
	if m.textSet && m.progressText == text {
		return
	}
	m.surface.SetProgressText(text)
	m.progressText = text
	m.textSet = true
}
