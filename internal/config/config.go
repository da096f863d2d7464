// Package config loads the scantrig configuration from file, environment
// and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mrilab/scantrig/internal/trigger"
)

// Config holds the complete application configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Logging LoggingConfig `mapstructure:"logging"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DeviceConfig selects the triggering device and its run parameters
type DeviceConfig struct {
	// Type is one of keyboard, serial, parallel, cedrus, dummy, emulator, mqtt
	Type string `mapstructure:"type"`

	// SkipScans is the number of leading triggers to discard before the
	// first accepted one
	SkipScans int `mapstructure:"skip_scans"`

	// WaitTimeout bounds the blocking wait for the first trigger
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`

	// RunTimeout bounds the whole polling loop
	RunTimeout time.Duration `mapstructure:"run_timeout"`

	// EscapeKey ends the run when pressed ("escape" or a single character)
	EscapeKey string `mapstructure:"escape_key"`

	Keyboard KeyboardConfig `mapstructure:"keyboard"`
	Serial   SerialConfig   `mapstructure:"serial"`
	Parallel ParallelConfig `mapstructure:"parallel"`
	Cedrus   CedrusConfig   `mapstructure:"cedrus"`
	Dummy    DummyConfig    `mapstructure:"dummy"`
	Emulator EmulatorConfig `mapstructure:"emulator"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
}

// KeyboardConfig defines keyboard device settings
type KeyboardConfig struct {
	SyncKey string `mapstructure:"sync_key"`
}

// SerialConfig defines serial port device settings
type SerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baudrate"`
	Sync     string `mapstructure:"sync"`
}

// ParallelConfig defines parallel port device settings
type ParallelConfig struct {
	Device       string        `mapstructure:"device"`
	Pin          int           `mapstructure:"pin"`
	Edge         string        `mapstructure:"edge"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// CedrusConfig defines Cedrus response pad settings
type CedrusConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baudrate"`
	SyncLine int    `mapstructure:"sync_line"`
}

// DummyConfig defines the unbounded pulse generator settings
type DummyConfig struct {
	TR time.Duration `mapstructure:"tr"`
}

// EmulatorConfig defines the bounded scanner emulator settings
type EmulatorConfig struct {
	TR      time.Duration `mapstructure:"tr"`
	Volumes int           `mapstructure:"volumes"`
}

// MQTTConfig defines MQTT trigger bridge settings
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	QoS      int    `mapstructure:"qos"`
	ClientID string `mapstructure:"client_id"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig defines session storage backend settings
type StorageConfig struct {
	// Type is bolt, redis or none
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	DialTimeout string `mapstructure:"dial_timeout"`
}

// MetricsConfig defines the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("SCANTRIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Device defaults
	v.SetDefault("device.type", trigger.DeviceKeyboard)
	v.SetDefault("device.skip_scans", 0)
	v.SetDefault("device.wait_timeout", "100s")
	v.SetDefault("device.run_timeout", "100s")
	v.SetDefault("device.escape_key", "escape")
	v.SetDefault("device.keyboard.sync_key", "t")
	v.SetDefault("device.serial.baudrate", 9600)
	v.SetDefault("device.serial.sync", "5")
	v.SetDefault("device.parallel.device", "/dev/parport0")
	v.SetDefault("device.parallel.pin", 10)
	v.SetDefault("device.parallel.edge", "rising")
	v.SetDefault("device.parallel.poll_interval", "1ms")
	v.SetDefault("device.cedrus.baudrate", 115200)
	v.SetDefault("device.cedrus.sync_line", 4)
	v.SetDefault("device.dummy.tr", "1s")
	v.SetDefault("device.emulator.tr", "1s")
	v.SetDefault("device.emulator.volumes", 100)
	v.SetDefault("device.mqtt.qos", 1)
	v.SetDefault("device.mqtt.client_id", "scantrig")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "scantrig.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.dial_timeout", "5s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 9100)
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if !slices.Contains(trigger.DeviceTypes, cfg.Device.Type) {
		return fmt.Errorf("unknown device type %q (want one of %s)",
			cfg.Device.Type, strings.Join(trigger.DeviceTypes, ", "))
	}
	if cfg.Device.SkipScans < 0 {
		return fmt.Errorf("skip_scans must not be negative: %d", cfg.Device.SkipScans)
	}
	if cfg.Device.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be positive: %s", cfg.Device.WaitTimeout)
	}
	if cfg.Device.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive: %s", cfg.Device.RunTimeout)
	}

	switch cfg.Device.Type {
	case trigger.DeviceDummy:
		if cfg.Device.Dummy.TR <= 0 {
			return fmt.Errorf("dummy.tr must be positive: %s", cfg.Device.Dummy.TR)
		}
	case trigger.DeviceEmulator:
		if cfg.Device.Emulator.TR <= 0 {
			return fmt.Errorf("emulator.tr must be positive: %s", cfg.Device.Emulator.TR)
		}
		if cfg.Device.Emulator.Volumes <= 0 {
			return fmt.Errorf("emulator.volumes must be positive: %d", cfg.Device.Emulator.Volumes)
		}
	case trigger.DeviceParallel:
		switch cfg.Device.Parallel.Pin {
		case 10, 11, 12, 13, 15:
		default:
			return fmt.Errorf("parallel.pin must be a status pin (10-13, 15): %d", cfg.Device.Parallel.Pin)
		}
		switch cfg.Device.Parallel.Edge {
		case "rising", "falling":
		default:
			return fmt.Errorf("parallel.edge must be rising or falling: %q", cfg.Device.Parallel.Edge)
		}
	}

	switch cfg.Storage.Type {
	case "bolt", "redis", "none":
	default:
		return fmt.Errorf("unknown storage type %q (want bolt, redis or none)", cfg.Storage.Type)
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	return nil
}

// TriggerConfig maps the device section onto the trigger package's config.
func (c *Config) TriggerConfig() trigger.Config {
	return trigger.Config{
		Keyboard: trigger.KeyboardConfig{
			SyncKey: c.Device.Keyboard.SyncKey,
		},
		Serial: trigger.SerialConfig{
			Port:     c.Device.Serial.Port,
			BaudRate: c.Device.Serial.BaudRate,
			Sync:     c.Device.Serial.Sync,
		},
		Parallel: trigger.ParallelConfig{
			Device:       c.Device.Parallel.Device,
			Pin:          c.Device.Parallel.Pin,
			Edge:         trigger.Edge(c.Device.Parallel.Edge),
			PollInterval: c.Device.Parallel.PollInterval,
		},
		Cedrus: trigger.CedrusConfig{
			Port:     c.Device.Cedrus.Port,
			BaudRate: c.Device.Cedrus.BaudRate,
			SyncLine: c.Device.Cedrus.SyncLine,
		},
		Dummy: trigger.DummyConfig{
			TR: c.Device.Dummy.TR,
		},
		Emulator: trigger.EmulatorConfig{
			TR:      c.Device.Emulator.TR,
			Volumes: c.Device.Emulator.Volumes,
		},
		MQTT: trigger.MQTTConfig{
			Broker:   c.Device.MQTT.Broker,
			Topic:    c.Device.MQTT.Topic,
			QoS:      byte(c.Device.MQTT.QoS),
			ClientID: c.Device.MQTT.ClientID,
		},
	}
}
