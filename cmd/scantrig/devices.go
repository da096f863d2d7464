package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/mrilab/scantrig/internal/config"
	"github.com/mrilab/scantrig/internal/trigger"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List trigger devices and serial ports",
	Long: `List the supported trigger device types, the serial ports present on this
machine, and what the current configuration would open.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	bold.Fprintln(os.Stdout, "Device types:")
	for _, dt := range trigger.DeviceTypes {
		marker := "  "
		if dt == cfg.Device.Type {
			marker = "* "
		}
		line := marker + dt
		if dt == cfg.Device.Type {
			green.Fprintln(os.Stdout, line+"  (configured)")
		} else {
			fmt.Fprintln(os.Stdout, line)
		}
	}

	fmt.Fprintln(os.Stdout)
	bold.Fprintln(os.Stdout, "Serial ports:")
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(os.Stdout, "  (none found)")
	}
	for _, port := range ports {
		fmt.Fprintf(os.Stdout, "  %s\n", port)
	}

	fmt.Fprintln(os.Stdout)
	bold.Fprintln(os.Stdout, "Configured device:")
	switch cfg.Device.Type {
	case trigger.DeviceKeyboard:
		fmt.Fprintf(os.Stdout, "  keyboard, sync key %q\n", cfg.Device.Keyboard.SyncKey)
	case trigger.DeviceSerial:
		fmt.Fprintf(os.Stdout, "  serial %s @ %d baud, sync %q\n",
			cfg.Device.Serial.Port, cfg.Device.Serial.BaudRate, cfg.Device.Serial.Sync)
	case trigger.DeviceParallel:
		fmt.Fprintf(os.Stdout, "  parallel %s, pin %d, %s edge\n",
			cfg.Device.Parallel.Device, cfg.Device.Parallel.Pin, cfg.Device.Parallel.Edge)
	case trigger.DeviceCedrus:
		fmt.Fprintf(os.Stdout, "  cedrus pad %s @ %d baud, sync line %d\n",
			cfg.Device.Cedrus.Port, cfg.Device.Cedrus.BaudRate, cfg.Device.Cedrus.SyncLine)
	case trigger.DeviceDummy:
		fmt.Fprintf(os.Stdout, "  dummy pulses every %s\n", cfg.Device.Dummy.TR)
	case trigger.DeviceEmulator:
		fmt.Fprintf(os.Stdout, "  emulator: %d volumes every %s\n",
			cfg.Device.Emulator.Volumes, cfg.Device.Emulator.TR)
	case trigger.DeviceMQTT:
		fmt.Fprintf(os.Stdout, "  mqtt %s topic %q qos %d\n",
			cfg.Device.MQTT.Broker, cfg.Device.MQTT.Topic, cfg.Device.MQTT.QoS)
	}

	return nil
}
