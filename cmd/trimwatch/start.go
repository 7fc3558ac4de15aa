package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/trimwatch/internal/status"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an auto-adjust run",
	Long: `Ask the controller to start auto-adjusting all channels.

The controller's start and cancel share one toggle, so start first checks
that no run is in progress and refuses otherwise.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ack, err := client.Start(context.Background())
	if err != nil {
		return err
	}
	return reportAck(ack)
}

// reportAck prints a control acknowledgment and converts a rejection into an
// error.
func reportAck(ack status.Acknowledgment) error {
	if !ack.Success {
		text := ack.Error
		if text == "" {
			text = ack.Message
		}
		printStatus("✗", "Controller rejected the command: "+text, color.FgRed)
		return fmt.Errorf("rejected: %s", text)
	}
	msg := ack.Message
	if msg == "" {
		msg = "Done."
	}
	printOK("%s", msg)
	return nil
}
