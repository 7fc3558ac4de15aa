package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/trimwatch/internal/controller"
	"github.com/ShayCichocki/trimwatch/internal/render"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// actionTimeout bounds operator-triggered controller calls.
const actionTimeout = 30 * time.Second

// SnapshotMsg carries a status snapshot to render.
type SnapshotMsg struct {
	Snapshot status.Snapshot
}

// ResetMsg renders the idle phase with Label.
type ResetMsg struct {
	Label string
}

// FailureMsg reports a transport failure of the status stream.
type FailureMsg struct {
	Err error
}

// ControlResultMsg is the controller's answer to a start/stop toggle.
type ControlResultMsg struct {
	Ack status.Acknowledgment
	Err error
}

// SettingsMsg replaces the operator settings, e.g. after a config reload.
type SettingsMsg struct {
	Settings render.Settings
}

// ReportSavedMsg reports the outcome of a report download.
type ReportSavedMsg struct {
	Batch string
	Path  string
	Err   error
}

// Actions are the side effects the App triggers. Implementations may block;
// the App always calls them from commands, never from Update.
type Actions interface {
	// Toggle starts or cancels the auto-adjust run.
	Toggle(ctx context.Context) (status.Acknowledgment, error)
	// SaveReport downloads the report of batch and returns where it was saved.
	SaveReport(ctx context.Context, batch string) (string, error)
	// StartMonitoring (re)starts the status stream.
	StartMonitoring()
	// StopMonitoring stops the status stream and resets the view.
	StopMonitoring()
}

// Options configures the App.
type Options struct {
	Settings      render.Settings
	CancelPhrases []string
	// Title is shown in the header, typically the controller address.
	Title string
}

// App is the bubbletea model for the live monitor.
type App struct {
	board     *Board
	monitor   *render.Monitor
	actions   Actions
	opts      Options
	spinner   spinner.Model
	prompt    *InputField
	prompting bool
	busy      bool
	width     int
	quitting  bool

	titleStyle  lipgloss.Style
	phaseStyle  lipgloss.Style
	footerStyle lipgloss.Style
}

// New creates an App.
func New(actions Actions, opts Options) *App {
	board := NewBoard()
	return &App{
		board:   board,
		monitor: render.NewMonitor(board, opts.Settings),
		actions: actions,
		opts:    opts,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
		),
		prompt: NewInputField(),
		width:  80,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),

		phaseStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// Board returns the surface the App renders into.
func (a *App) Board() *Board {
	return a.board
}

// Monitor returns the renderer driving the board.
func (a *App) Monitor() *render.Monitor {
	return a.monitor
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.startMonitoring())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.prompting {
			var cmd tea.Cmd
			a.prompt, cmd = a.prompt.Update(msg)
			return a, cmd
		}
		return a, a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.prompt.SetWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case SnapshotMsg:
		a.monitor.Render(msg.Snapshot)

	case ResetMsg:
		a.monitor.Reset(msg.Label)

	case FailureMsg:
		a.monitor.Failure(msg.Err)

	case SettingsMsg:
		a.monitor.SetSettings(msg.Settings)

	case ControlResultMsg:
		a.busy = false
		return a, a.handleControlResult(msg)

	case BatchSubmittedMsg:
		a.prompting = false
		a.prompt.Blur()
		return a, a.saveReport(msg.Batch)

	case BatchCancelledMsg:
		a.prompting = false
		a.prompt.Blur()

	case ReportSavedMsg:
		a.busy = false
		if msg.Err != nil {
			a.monitor.Reject(status.Acknowledgment{Error: fmt.Sprintf("report %s: %v", msg.Batch, msg.Err)})
		} else {
			a.monitor.Notify(fmt.Sprintf("Report %s saved to %s", msg.Batch, msg.Path))
		}
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		a.quitting = true
		return tea.Quit
	case "s":
		if a.busy {
			return nil
		}
		a.busy = true
		return a.toggle()
	case "r":
		a.prompting = true
		return a.prompt.Focus()
	case "m":
		return a.startMonitoring()
	}
	return nil
}

// handleControlResult applies a toggle answer. Rejections only show a banner;
// the status stream keeps running.
func (a *App) handleControlResult(msg ControlResultMsg) tea.Cmd {
	if msg.Err != nil {
		a.monitor.Reject(status.Acknowledgment{Error: msg.Err.Error()})
		return nil
	}
	if !msg.Ack.Success {
		a.monitor.Reject(msg.Ack)
		return nil
	}
	if controller.IsCancellation(msg.Ack, a.opts.CancelPhrases) {
		return a.stopMonitoring()
	}
	if msg.Ack.Message != "" {
		a.monitor.Notify(msg.Ack.Message)
	}
	return a.startMonitoring()
}

func (a *App) toggle() tea.Cmd {
	actions := a.actions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		ack, err := actions.Toggle(ctx)
		return ControlResultMsg{Ack: ack, Err: err}
	}
}

func (a *App) saveReport(batch string) tea.Cmd {
	a.busy = true
	actions := a.actions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		path, err := actions.SaveReport(ctx, batch)
		return ReportSavedMsg{Batch: batch, Path: path, Err: err}
	}
}

func (a *App) startMonitoring() tea.Cmd {
	actions := a.actions
	return func() tea.Msg {
		actions.StartMonitoring()
		return nil
	}
}

func (a *App) stopMonitoring() tea.Cmd {
	actions := a.actions
	return func() tea.Msg {
		actions.StopMonitoring()
		return nil
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	title := "trimwatch"
	if a.opts.Title != "" {
		title += " · " + a.opts.Title
	}
	b.WriteString(a.titleStyle.Render(title))
	b.WriteString("\n")

	phase := a.board.ProgressText()
	if a.monitor.Phase().Active() {
		phase = a.spinner.View() + " " + phase
	}
	settings := a.monitor.Settings()
	b.WriteString(a.phaseStyle.Render(phase))
	b.WriteString(fmt.Sprintf("   target %.2f Hz ± %.2f", settings.Target, settings.Precision))
	b.WriteString("   ")
	b.WriteString(a.board.ViewButton())
	b.WriteString("\n\n")

	b.WriteString(a.board.ViewTable())

	if banner := a.board.ViewBanner(); banner != "" {
		b.WriteString("\n")
		b.WriteString(banner)
		b.WriteString("\n")
	}

	if a.prompting {
		b.WriteString("\n")
		b.WriteString(a.prompt.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.footerStyle.Render("s start/stop · r report · m reconnect · q quit"))
	return b.String()
}

// NewProgram creates the bubbletea program and its App.
func NewProgram(actions Actions, opts Options) (*tea.Program, *App) {
	app := New(actions, opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}
