package main

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fatih/color"

	"github.com/ShayCichocki/trimwatch/internal/config"
	"github.com/ShayCichocki/trimwatch/internal/controller"
	"github.com/ShayCichocki/trimwatch/internal/geometry"
	"github.com/ShayCichocki/trimwatch/internal/render"
)

// loadConfig loads configuration honoring the global flags.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFromPath(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if serverFlag != "" {
		cfg.Server.URL = serverFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) (*controller.Client, error) {
	return controller.New(cfg.Server.URL, controller.WithRequestTimeout(cfg.Server.RequestTimeout))
}

func settingsFrom(cfg *config.Config) render.Settings {
	return render.Settings{
		Target:    cfg.Adjust.TargetHz,
		Precision: cfg.Adjust.PrecisionHz,
		Geometry:  geometry.Options{AnchorEpsilon: cfg.Adjust.AnchorEpsilonHz},
	}
}

// newBackOff returns the reconnect policy factory for cfg.
func newBackOff(cfg *config.Config) func() backoff.BackOff {
	rc := cfg.Reconnect
	return func() backoff.BackOff {
		return backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(rc.InitialInterval),
			backoff.WithMaxInterval(rc.MaxInterval),
			backoff.WithMaxElapsedTime(rc.MaxElapsed),
		)
	}
}

// printStatus prints a status line with a colored symbol.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

func printOK(format string, args ...interface{}) {
	printStatus("✓", fmt.Sprintf(format, args...), color.FgGreen)
}

func printWarn(format string, args ...interface{}) {
	printStatus("!", fmt.Sprintf(format, args...), color.FgYellow)
}

// retryDelay is how long --follow waits before resubscribing after a run
// ended or the controller reported nothing active.
func retryDelay(cfg *config.Config) time.Duration {
	if cfg.Reconnect.MaxInterval > 0 {
		return cfg.Reconnect.MaxInterval
	}
	return 5 * time.Second
}
