package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/trimwatch/internal/geometry"
	"github.com/ShayCichocki/trimwatch/internal/render"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current auto-adjust status once",
	Long: `Read one status report from the controller and print it.

Output formats:
  table  channel table with progress toward the configured target (default)
  json   machine-readable report
  yaml   machine-readable report`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format: table, json or yaml")
}

// statusView is the printable form of one status report.
type statusView struct {
	Active         bool               `json:"active" yaml:"active"`
	Phase          string             `json:"phase" yaml:"phase"`
	Message        string             `json:"message,omitempty" yaml:"message,omitempty"`
	ProgressText   string             `json:"progress_text,omitempty" yaml:"progress_text,omitempty"`
	MeasureChannel *status.ChannelID  `json:"measure_channel,omitempty" yaml:"measure_channel,omitempty"`
	BurnChannel    *status.ChannelID  `json:"burn_channel,omitempty" yaml:"burn_channel,omitempty"`
	TargetHz       float64            `json:"target_hz" yaml:"target_hz"`
	PrecisionHz    float64            `json:"precision_hz" yaml:"precision_hz"`
	Channels       []channelStatusRow `json:"channels" yaml:"channels"`
}

type channelStatusRow struct {
	ID          status.ChannelID `json:"id" yaml:"id"`
	Step        int              `json:"step" yaml:"step"`
	InitialHz   *float64         `json:"initial_hz" yaml:"initial_hz"`
	CurrentHz   *float64         `json:"current_hz" yaml:"current_hz"`
	State       status.StateCode `json:"state" yaml:"state"`
	ProgressPct *float64         `json:"progress_pct" yaml:"progress_pct"`
	Zone        string           `json:"zone" yaml:"zone"`
}

func newStatusView(env status.Envelope, settings render.Settings) statusView {
	v := statusView{
		TargetHz:    settings.Target,
		PrecisionHz: settings.Precision,
		Channels:    []channelStatusRow{},
	}

	if env.Kind == status.KindAck {
		v.Phase = status.Idle().String()
		v.Message = env.Ack.Error
		if v.Message == "" {
			v.Message = env.Ack.Message
		}
		return v
	}

	snap := env.Snapshot
	v.Active = snap.Phase.Active()
	v.Phase = snap.Phase.String()
	v.Message = snap.Phase.Message
	v.ProgressText = snap.ProgressText
	v.MeasureChannel = snap.MeasureChannel
	v.BurnChannel = snap.BurnChannel
	for _, rec := range snap.Resonators {
		bar := geometry.Compute(geometry.Input{
			Initial:   rec.Initial(),
			Current:   rec.Current(),
			Target:    settings.Target,
			Precision: settings.Precision,
		}, settings.Geometry)

		row := channelStatusRow{
			ID:        rec.ID,
			Step:      rec.CurrentStep,
			InitialHz: rec.InitialFreq,
			CurrentHz: rec.CurrentFreq,
			State:     rec.State,
			Zone:      bar.Color.String(),
		}
		if !bar.Empty {
			pct := geometry.Clamp(bar.Fill)
			row.ProgressPct = &pct
		}
		v.Channels = append(v.Channels, row)
	}
	return v
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	env, err := client.Fetch(context.Background())
	if err != nil {
		return fmt.Errorf("read status from %s: %w", client.BaseURL(), err)
	}
	return writeStatus(os.Stdout, statusOutput, newStatusView(env, settingsFrom(cfg)))
}

func writeStatus(w io.Writer, format string, v statusView) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		_, err := io.WriteString(w, formatStatusTable(v))
		return err
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	statusCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	statusMarkStyle   = statusCellStyle.Bold(true)
)

func formatStatusTable(v statusView) string {
	out := fmt.Sprintf("Phase: %s\n", v.Phase)
	if v.ProgressText != "" {
		out += fmt.Sprintf("Progress: %s\n", v.ProgressText)
	}
	if v.Message != "" {
		out += fmt.Sprintf("Message: %s\n", v.Message)
	}
	out += fmt.Sprintf("Target: %.2f Hz ± %.2f\n", v.TargetHz, v.PrecisionHz)
	if len(v.Channels) == 0 {
		return out
	}

	marked := map[int]bool{}
	rows := make([][]string, 0, len(v.Channels))
	for i, c := range v.Channels {
		marks := ""
		if v.MeasureChannel != nil && *v.MeasureChannel == c.ID {
			marks += "▶"
		}
		if v.BurnChannel != nil && *v.BurnChannel == c.ID {
			marks += "🔥"
		}
		if marks != "" {
			marked[i] = true
		}

		progress := render.Placeholder
		if c.ProgressPct != nil {
			progress = fmt.Sprintf("%.1f%% %s", *c.ProgressPct, c.Zone)
		}
		rows = append(rows, []string{
			marks,
			strconv.Itoa(int(c.ID) + 1),
			strconv.Itoa(c.Step),
			render.FormatFreq(c.InitialHz),
			render.FormatFreq(c.CurrentHz),
			render.FormatState(c.State),
			progress,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return statusHeaderStyle
			case marked[row]:
				return statusMarkStyle
			default:
				return statusCellStyle
			}
		}).
		Headers("", "#", "Step", "Initial, Hz", "Current, Hz", "State", "Progress").
		Rows(rows...)

	return out + t.String() + "\n"
}
