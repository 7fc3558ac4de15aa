package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/trimwatch/internal/config"
	"github.com/ShayCichocki/trimwatch/internal/controller"
	"github.com/ShayCichocki/trimwatch/internal/logging"
	"github.com/ShayCichocki/trimwatch/internal/metrics"
	"github.com/ShayCichocki/trimwatch/internal/monitor"
	"github.com/ShayCichocki/trimwatch/internal/status"
	"github.com/ShayCichocki/trimwatch/internal/tui"
)

var (
	watchPlain     bool
	watchFollow    bool
	watchReportDir string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live monitor (default command)",
	Long: `Follow the controller's auto-adjust run.

The interactive monitor accepts:
  s  start or stop the run
  r  download the report of a batch
  m  reconnect to the status stream
  q  quit

With --plain, changes are printed line by line instead, which suits logs and
terminals without cursor control. Plain mode exits when the controller reports
no active run, unless --follow is given.`,
	RunE: runWatch,
}

func init() {
	// The root command runs watch too, so it accepts the same flags
	for _, c := range []*cobra.Command{watchCmd, rootCmd} {
		c.Flags().BoolVar(&watchPlain, "plain", false, "Print changes line by line instead of the interactive monitor")
		c.Flags().BoolVar(&watchFollow, "follow", false, "In plain mode, keep polling after the run ends")
		c.Flags().StringVar(&watchReportDir, "report-dir", ".", "Directory reports are saved to")
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, recorder); err != nil {
				logger.Printf("metrics endpoint on %s: %v", cfg.Metrics.Addr, err)
			}
		}()
	}

	opts := monitor.Options{
		IdleLabel:  cfg.Labels.Waiting,
		NewBackOff: newBackOff(cfg),
		Logger:     logger,
		Metrics:    recorder,
	}

	logger.Printf("watching %s", client.BaseURL())
	if watchPlain {
		return runPlain(ctx, cfg, client, opts)
	}
	return runInteractive(ctx, cfg, client, opts)
}

func runInteractive(ctx context.Context, cfg *config.Config, client *controller.Client, opts monitor.Options) error {
	// Suppress stdlib log output while the TUI owns the terminal
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	actions := &watchActions{
		ctx:       ctx,
		client:    client,
		reportDir: watchReportDir,
	}
	program, _ := tui.NewProgram(actions, tui.Options{
		Settings:      settingsFrom(cfg),
		CancelPhrases: cfg.Labels.CancelPhrases,
		Title:         client.BaseURL(),
	})
	actions.sup = monitor.New(client, tui.NewProgramSink(program), opts)

	watcher, err := watchConfig(func(c *config.Config) {
		program.Send(tui.SettingsMsg{Settings: settingsFrom(c)})
	}, opts.Logger)
	if err == nil {
		defer watcher.Close()
	}

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err = program.Run()
	// The program is gone; the sink drops whatever the final reset sends.
	actions.sup.Stop()
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

func runPlain(ctx context.Context, cfg *config.Config, client *controller.Client, opts monitor.Options) error {
	sink := newPlainSink(os.Stdout, settingsFrom(cfg))
	sup := monitor.New(client, sink, opts)

	watcher, err := watchConfig(func(c *config.Config) {
		sink.SetSettings(settingsFrom(c))
	}, opts.Logger)
	if err == nil {
		defer watcher.Close()
	}

	for {
		h := sup.Start(ctx)
		select {
		case <-ctx.Done():
			sup.Stop()
			return nil
		case <-h.Done():
		}

		if err := h.Err(); err != nil && !watchFollow {
			return err
		}
		if !watchFollow {
			return nil
		}

		select {
		case <-ctx.Done():
			sup.Stop()
			return nil
		case <-time.After(retryDelay(cfg)):
		}
	}
}

// watchConfig reloads operator settings when a config file changes. With
// --config only that file is watched.
func watchConfig(apply func(*config.Config), logger *logging.Logger) (*config.Watcher, error) {
	onChange := func(c *config.Config, err error) {
		if err != nil {
			logger.Printf("config reload: %v", err)
			return
		}
		if err := c.Validate(); err != nil {
			logger.Printf("config reload rejected: %v", err)
			return
		}
		logger.Printf("config reloaded: target %.2f Hz, precision %.2f Hz", c.Adjust.TargetHz, c.Adjust.PrecisionHz)
		apply(c)
	}

	var (
		w   *config.Watcher
		err error
	)
	if configFlag != "" {
		path := configFlag
		w, err = config.WatchFiles([]string{path}, func() (*config.Config, error) {
			return config.LoadFromPath(path)
		}, onChange)
	} else {
		w, err = config.Watch(onChange)
	}
	if err != nil {
		logger.Printf("config watch disabled: %v", err)
	}
	return w, err
}

func openLogger(cfg *config.Config) (*logging.Logger, error) {
	if cfg.Log.File == "" {
		return logging.Nop(), nil
	}
	l, err := logging.New(cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return l, nil
}

// watchActions connects the interactive monitor to the controller.
type watchActions struct {
	ctx       context.Context
	client    *controller.Client
	sup       *monitor.Supervisor
	reportDir string
}

func (a *watchActions) Toggle(ctx context.Context) (status.Acknowledgment, error) {
	return a.client.Toggle(ctx)
}

func (a *watchActions) SaveReport(ctx context.Context, batch string) (string, error) {
	path := filepath.Join(a.reportDir, reportFileName(batch))
	if _, err := saveReport(ctx, a.client, batch, path); err != nil {
		return "", err
	}
	return path, nil
}

func (a *watchActions) StartMonitoring() {
	a.sup.Start(a.ctx)
}

func (a *watchActions) StopMonitoring() {
	a.sup.Stop()
}
