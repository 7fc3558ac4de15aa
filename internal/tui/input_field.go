package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// BatchSubmittedMsg is sent when the operator confirms a batch id.
type BatchSubmittedMsg struct {
	Batch string
}

// BatchCancelledMsg is sent when the operator dismisses the prompt.
type BatchCancelledMsg struct{}

// InputField is the batch id prompt for report downloads.
type InputField struct {
	input textinput.Model
	width int
}

// NewInputField creates a new InputField.
func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Batch id, then Enter (Esc to cancel)"
	ti.CharLimit = 64
	ti.Width = 40

	return &InputField{
		input: ti,
		width: 60,
	}
}

// SetWidth sets the width of the input field.
func (f *InputField) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	f.width = width
	f.input.Width = width - 4
}

// Update handles messages for the input field.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			batch := strings.TrimSpace(f.input.Value())
			if batch == "" {
				return f, nil
			}
			f.input.Reset()
			return f, func() tea.Msg {
				return BatchSubmittedMsg{Batch: batch}
			}
		case "esc":
			f.input.Reset()
			return f, func() tea.Msg {
				return BatchCancelledMsg{}
			}
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *InputField) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	prompt := promptStyle.Render("Report > ")
	return boxStyle.Render(prompt + f.input.View())
}

// Value returns the current text.
func (f *InputField) Value() string {
	return f.input.Value()
}

// Focus sets focus on the input field.
func (f *InputField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input field.
func (f *InputField) Blur() {
	f.input.Blur()
}
