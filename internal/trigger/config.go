package trigger

import "time"

// Config carries the per-device settings. Only the section matching the
// selected device type is consulted.
type Config struct {
	Keyboard KeyboardConfig
	Serial   SerialConfig
	Parallel ParallelConfig
	Cedrus   CedrusConfig
	Dummy    DummyConfig
	Emulator EmulatorConfig
	MQTT     MQTTConfig
}

// KeyboardConfig selects the sync key watched on the controlling terminal.
type KeyboardConfig struct {
	// SyncKey is the character the scanner (or operator) sends per volume.
	SyncKey string

	// keys is the raw key stream the driver reads from. Set by the run
	// layer so the escape watcher and the keyboard source share one
	// terminal reader.
	Keys <-chan byte
}

// SerialConfig configures a sync byte on a serial line.
type SerialConfig struct {
	Port     string // e.g. /dev/ttyUSB0
	BaudRate int
	Sync     string // byte value announcing a volume, e.g. "5"
}

// Edge selects which parallel port transition counts as a trigger.
type Edge string

const (
	Rising  Edge = "rising"
	Falling Edge = "falling"
)

// ParallelConfig configures a status pin on a parallel port.
type ParallelConfig struct {
	Device string // e.g. /dev/parport0
	Pin    int    // status pin 10, 11, 12, 13 or 15
	Edge   Edge

	// PollInterval bounds the status register sampling rate. Zero means
	// the default of 1ms.
	PollInterval time.Duration
}

// CedrusConfig configures a Cedrus response pad on its XID serial link.
type CedrusConfig struct {
	Port     string // e.g. /dev/ttyUSB1
	BaudRate int    // XID pads run at 115200 by default
	SyncLine int    // input line wired to the scanner, 0-7
}

// DummyConfig configures internally generated pulses.
type DummyConfig struct {
	TR time.Duration // repetition time between pulses
}

// EmulatorConfig configures a bounded pulse generator: Volumes pulses at TR,
// then end of run.
type EmulatorConfig struct {
	TR      time.Duration
	Volumes int
}

// MQTTConfig configures trigger messages arriving on an MQTT topic.
type MQTTConfig struct {
	Broker   string // e.g. mqtt://console-bridge:1883
	Topic    string
	QoS      byte
	ClientID string
}
