package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mrilab/scantrig/internal/config"
	"github.com/mrilab/scantrig/internal/stats"
	"github.com/mrilab/scantrig/internal/storage"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect saved trigger-timing sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print statistics and histogram for a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export ID FILE",
	Short: "Write the per-trigger CSV for a saved session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsExport,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func withStore(fn func(store storage.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(store)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		sessions, err := store.Sessions().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		bold := color.New(color.Bold)
		bold.Printf("%-18s %-20s %-10s %9s %6s %10s\n",
			"ID", "STARTED", "DEVICE", "TRIGGERS", "SKIP", "MEAN")
		for _, s := range sessions {
			fmt.Printf("%-18s %-20s %-10s %9d %6d %9.3fs\n",
				s.ID,
				s.StartedAt.Format("2006-01-02 15:04:05"),
				s.Device,
				s.Triggers,
				s.SkipScans,
				s.Summary.Mean.Seconds())
		}
		return nil
	})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		session, err := store.Sessions().Get(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("Session %s\n", session.ID)
		fmt.Printf("Started:  %s\n", session.StartedAt.Format("2006-01-02 15:04:05.000"))
		fmt.Printf("Device:   %s\n", session.Device)
		fmt.Printf("Triggers: %d (skip %d)\n\n", session.Triggers, session.SkipScans)

		stats.RenderSummary(os.Stdout, session.Summary)
		fmt.Println()
		stats.RenderHistogram(os.Stdout, session.Deltas, 0)
		return nil
	})
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		session, err := store.Sessions().Get(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			return err
		}

		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := session.WriteCSV(f); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Printf("Exported session %s to %s\n", session.ID, args[1])
		return nil
	})
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(store storage.Store) error {
		if err := store.Sessions().Delete(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			return err
		}
		fmt.Printf("Deleted session %s\n", args[0])
		return nil
	})
}
