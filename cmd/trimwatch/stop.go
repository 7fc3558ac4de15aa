package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/trimwatch/internal/controller"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Cancel the running auto-adjust",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ack, err := client.Cancel(context.Background())
	if errors.Is(err, controller.ErrNotActive) {
		printWarn("No auto-adjust run is active")
		return nil
	}
	if err != nil {
		return err
	}

	if ack.Success && !controller.IsCancellation(ack, cfg.Labels.CancelPhrases) {
		printWarn("Controller did not confirm a cancellation: %s", ack.Message)
		return nil
	}
	return reportAck(ack)
}
