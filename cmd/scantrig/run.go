package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mrilab/scantrig/internal/config"
	"github.com/mrilab/scantrig/internal/keys"
	"github.com/mrilab/scantrig/internal/metrics"
	"github.com/mrilab/scantrig/internal/recorder"
	"github.com/mrilab/scantrig/internal/stats"
	"github.com/mrilab/scantrig/internal/storage"
	"github.com/mrilab/scantrig/internal/trigger"
)

var (
	runDevice string
	runSkip   int
	runOutput string
	runNoSave bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Record a trigger-timing session",
	Long: `Open the configured trigger device, wait for the first trigger, then poll
for triggers until the escape key is pressed or the run timeout elapses.
Afterwards print delta-time statistics and a histogram, and save the session.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runDevice, "device", "", "Triggering device (overrides config)")
	runCmd.Flags().IntVar(&runSkip, "skip-scans", -1, "Number of leading triggers to skip (overrides config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Write per-trigger CSV to this file (timestamped)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist the session")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flag overrides
	if runDevice != "" {
		cfg.Device.Type = runDevice
	}
	if runSkip >= 0 {
		cfg.Device.SkipScans = runSkip
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("device", cfg.Device.Type).
		Int("skip_scans", cfg.Device.SkipScans).
		Msg("Starting scantrig")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics endpoint, for long bench runs
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(addr, logger)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Error().Err(err).Msg("Error stopping metrics server")
			}
		}()
	}

	// Terminal keys drive both the escape watcher and the keyboard device
	reader, err := keys.NewReader(os.Stdin, logger)
	if err != nil {
		return fmt.Errorf("failed to read terminal: %w", err)
	}
	defer func() { _ = reader.Close() }()

	escapeKey, err := parseEscapeKey(cfg.Device.EscapeKey)
	if err != nil {
		return err
	}

	// With the keyboard device the trigger source and the escape watcher
	// both consume keypresses, so the stream is teed.
	escKeys := reader.Keys()
	tcfg := cfg.TriggerConfig()
	if cfg.Device.Type == trigger.DeviceKeyboard {
		tcfg.Keyboard.Keys, escKeys = teeKeys(reader.Keys())
	}

	source, err := trigger.New(cfg.Device.Type, tcfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("ScannerTrigger error")
		return err
	}
	if err := source.Open(); err != nil {
		logger.Error().Err(err).Msg("ScannerTrigger error")
		return err
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing trigger source")
		}
	}()

	rec := recorder.New(recorder.Config{
		Device:      cfg.Device.Type,
		SkipScans:   cfg.Device.SkipScans,
		WaitTimeout: cfg.Device.WaitTimeout,
		RunTimeout:  cfg.Device.RunTimeout,
		EscapeKey:   escapeKey,
	}, source, escKeys, logger)

	session, _, err := rec.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("ScannerTrigger error")
		return err
	}

	// Leave raw mode before writing the report
	_ = reader.Close()

	fmt.Println()
	stats.RenderSummary(os.Stdout, session.Summary)
	fmt.Println()
	stats.RenderHistogram(os.Stdout, session.Deltas, 0)

	if runOutput != "" {
		name, err := writeCSV(session, runOutput)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to write CSV")
		} else {
			fmt.Printf("\nResults saved to %s\n", name)
		}
	}

	if !runNoSave && cfg.Storage.Type != "none" {
		store, err := openStore(cfg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open session store")
			return nil
		}
		defer func() { _ = store.Close() }()

		if err := store.Sessions().Put(ctx, session); err != nil {
			logger.Error().Err(err).Msg("Failed to save session")
			return nil
		}
		logger.Info().Str("session", session.ID).Msg("session saved")
	}

	return nil
}

// teeKeys duplicates a key stream onto two channels. Sends never block; a
// consumer that stops draining only loses its own copy.
func teeKeys(in <-chan byte) (<-chan byte, <-chan byte) {
	a := make(chan byte, 64)
	b := make(chan byte, 64)
	go func() {
		for k := range in {
			select {
			case a <- k:
			default:
			}
			select {
			case b <- k:
			default:
			}
		}
	}()
	return a, b
}

// parseEscapeKey maps the configured escape key to its raw byte.
func parseEscapeKey(s string) (byte, error) {
	switch {
	case s == "" || s == "escape" || s == "esc":
		return keys.Escape, nil
	case len(s) == 1:
		return s[0], nil
	default:
		return 0, fmt.Errorf("escape_key must be \"escape\" or a single character, got %q", s)
	}
}

// writeCSV writes the per-trigger rows with a timestamped filename.
func writeCSV(session storage.Session, path string) (string, error) {
	timestamp := time.Now().Format("20060102-150405")
	name := strings.Replace(path, ".csv", "_"+timestamp+".csv", 1)

	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := session.WriteCSV(f); err != nil {
		return "", err
	}
	return name, nil
}
