package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/trimwatch/internal/controller"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report <batch>",
	Short: "Download the trimming report of a batch",
	Long: `Download the controller's spreadsheet report for a batch (part id).

The report is saved as <batch>.xlsx in the current directory unless -o names
another file.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "File to write the report to")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	batch := strings.TrimSpace(args[0])
	path := reportOutput
	if path == "" {
		path = reportFileName(batch)
	}

	n, err := saveReport(context.Background(), client, batch, path)
	if err != nil {
		return err
	}
	printOK("Saved report for %s to %s (%d bytes)", batch, path, n)
	return nil
}

// reportFileName derives a file name from a batch id.
func reportFileName(batch string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(batch))
	if name == "" || name == "." || name == ".." {
		name = "report"
	}
	return name + ".xlsx"
}

// saveReport downloads into a temporary file next to path and renames it
// into place once the download is complete.
func saveReport(ctx context.Context, client *controller.Client, batch, path string) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return 0, fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := client.DownloadReport(ctx, batch, tmp)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("download report %s: %w", batch, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	return n, nil
}
