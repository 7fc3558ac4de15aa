package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/trimwatch/internal/monitor"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards supervisor output to the program's event loop, so all
// rendering happens on one goroutine.
type ProgramSink struct {
	sender Sender
}

// NewProgramSink creates a sink sending to s.
func NewProgramSink(s Sender) *ProgramSink {
	return &ProgramSink{sender: s}
}

// Render implements monitor.Sink.
func (s *ProgramSink) Render(snap status.Snapshot) {
	s.sender.Send(SnapshotMsg{Snapshot: snap})
}

// Reset implements monitor.Sink.
func (s *ProgramSink) Reset(label string) {
	s.sender.Send(ResetMsg{Label: label})
}

// Failure implements monitor.Sink.
func (s *ProgramSink) Failure(err error) {
	s.sender.Send(FailureMsg{Err: err})
}

var _ monitor.Sink = (*ProgramSink)(nil)
