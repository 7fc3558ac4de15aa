package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/trimwatch/internal/controller"
)

var (
	targetOffset float64
	targetNoSave bool
)

var targetCmd = &cobra.Command{
	Use:   "target [hz]",
	Short: "Show or set the target frequency",
	Long: `Without arguments, prints the configured target frequency and tolerance.

With a frequency, sends it to the controller and saves it as adjust.target_hz
so progress bars are scaled against the same value. --offset also updates the
controller's work offset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTarget,
}

func init() {
	targetCmd.Flags().Float64Var(&targetOffset, "offset", 0, "Work offset in Hz to send along with the target")
	targetCmd.Flags().BoolVar(&targetNoSave, "no-save", false, "Update the controller only, leave the local config alone")
}

func runTarget(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Printf("%.2f Hz ± %.2f\n", cfg.Adjust.TargetHz, cfg.Adjust.PrecisionHz)
		return nil
	}

	hz, err := strconv.ParseFloat(args[0], 64)
	if err != nil || hz <= 0 {
		return fmt.Errorf("invalid target frequency %q", args[0])
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	upd := controller.ConfigUpdate{TargetFreq: &hz}
	if cmd.Flags().Changed("offset") {
		upd.WorkOffsetHz = &targetOffset
	}
	if err := client.UpdateConfig(context.Background(), upd); err != nil {
		return fmt.Errorf("update controller: %w", err)
	}
	printOK("Controller target set to %.2f Hz", hz)

	if targetNoSave {
		return nil
	}
	stored, err := loadStoredConfig()
	if err != nil {
		return err
	}
	stored.Adjust.TargetHz = hz
	if err := saveStoredConfig(stored); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	printOK("Saved adjust.target_hz = %.2f", hz)
	return nil
}
