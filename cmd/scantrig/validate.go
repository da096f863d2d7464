package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mrilab/scantrig/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the scantrig configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(os.Stdout, "Configuration is valid: %s\n", configPath)
	fmt.Fprintf(os.Stdout, "  device:  %s (skip %d)\n", cfg.Device.Type, cfg.Device.SkipScans)
	fmt.Fprintf(os.Stdout, "  storage: %s\n", cfg.Storage.Type)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(os.Stdout, "  metrics: %s:%d\n", cfg.Metrics.BindAddress, cfg.Metrics.Port)
	}
	return nil
}
