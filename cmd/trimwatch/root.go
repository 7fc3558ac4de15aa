package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverFlag string
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "trimwatch",
	Short: "Live monitor for laser resonator trimming",
	Long: `trimwatch follows the auto-adjust run of a laser trimming controller.

With no arguments, opens the live monitor: one row per resonator channel with
its step, initial and current frequency, state and a progress bar scaled to
the operator's target and tolerance. The channels being measured and burned
are highlighted as the run advances.

The controller is reached over HTTP (server.url, default http://localhost:3289).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Controller URL (overrides server.url)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Read configuration from this file only")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
