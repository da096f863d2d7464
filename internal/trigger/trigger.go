// Package trigger implements scanner trigger sources: devices that emit a
// pulse at the start of each scan volume. All sources share the same pulse
// pipeline; device drivers only detect pulses and push their timestamps.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Device types accepted by New.
const (
	DeviceKeyboard = "keyboard"
	DeviceSerial   = "serial"
	DeviceParallel = "parallel"
	DeviceCedrus   = "cedrus"
	DeviceDummy    = "dummy"
	DeviceEmulator = "emulator"
	DeviceMQTT     = "mqtt"
)

// DeviceTypes lists every device type accepted by New, in display order.
var DeviceTypes = []string{
	DeviceKeyboard,
	DeviceSerial,
	DeviceParallel,
	DeviceCedrus,
	DeviceDummy,
	DeviceEmulator,
	DeviceMQTT,
}

var (
	// ErrSourceClosed is returned by Poll once a bounded source has emitted
	// its last pulse (emulator volumes exhausted) or the source was closed.
	ErrSourceClosed = errors.New("trigger source closed")

	// ErrNotOpen is returned when WaitForFirst or Poll is called before Open.
	ErrNotOpen = errors.New("trigger source not open")
)

// Event is one accepted trigger.
type Event struct {
	// Index is the zero-based trigger number counted from the start of the
	// run, including skipped triggers: with skip=N the first reported event
	// has Index N.
	Index int

	// Onset is the time elapsed since the first accepted trigger.
	Onset time.Duration

	// Time is the absolute timestamp the pulse was detected.
	Time time.Time
}

// Source is a scanner trigger device.
//
// The lifecycle is Open, one WaitForFirst, any number of Poll calls, Close.
type Source interface {
	// Open acquires the device and starts pulse detection.
	Open() error

	// WaitForFirst blocks until the first accepted trigger arrives,
	// discarding skip leading triggers first. It honors ctx cancellation
	// and deadline.
	WaitForFirst(ctx context.Context, skip int) (Event, error)

	// Poll reports a new trigger if one arrived since the last call. It
	// never blocks. The second return is false when no trigger is pending.
	// After the source ends it returns ErrSourceClosed.
	Poll() (Event, bool, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// driver is the device-specific half of a source: start begins pulse
// detection, feeding detected pulse timestamps through the emit callback,
// and stop ends it. A bounded driver calls end once after its final pulse.
// Drivers never see Events or skip counts.
type driver interface {
	start(emit func(time.Time), end func()) error
	stop() error
}

// New constructs the source for the given device type. An unrecognized
// device type is an immediate error.
func New(deviceType string, cfg Config, logger zerolog.Logger) (Source, error) {
	logger = logger.With().Str("component", "trigger").Str("device", deviceType).Logger()

	var d driver
	switch deviceType {
	case DeviceKeyboard:
		d = newKeyboardDriver(cfg.Keyboard, logger)
	case DeviceSerial:
		d = newSerialDriver(cfg.Serial, logger)
	case DeviceParallel:
		var err error
		d, err = newParallelDriver(cfg.Parallel, logger)
		if err != nil {
			return nil, err
		}
	case DeviceCedrus:
		d = newCedrusDriver(cfg.Cedrus, logger)
	case DeviceDummy:
		d = newPulseDriver(cfg.Dummy.TR, 0, logger)
	case DeviceEmulator:
		d = newPulseDriver(cfg.Emulator.TR, cfg.Emulator.Volumes, logger)
	case DeviceMQTT:
		d = newMQTTDriver(cfg.MQTT, logger)
	default:
		return nil, fmt.Errorf("unknown trigger device %q", deviceType)
	}

	return &source{driver: d, logger: logger}, nil
}

// source turns a driver's raw pulse stream into numbered, onset-stamped
// Events and applies skip accounting.
type source struct {
	driver driver
	logger zerolog.Logger

	pulses chan time.Time
	open   bool
	closed bool

	epoch time.Time // timestamp of the first accepted trigger
	count int       // raw pulses accepted so far, including skipped
}

// pulseBuffer bounds how many undrained pulses are kept. Triggers arrive on
// the order of once per second; the poll loop drains far faster.
const pulseBuffer = 64

func (s *source) Open() error {
	if s.open {
		return nil
	}
	s.pulses = make(chan time.Time, pulseBuffer)
	emit := func(t time.Time) {
		select {
		case s.pulses <- t:
		default:
			s.logger.Warn().Time("pulse", t).Msg("pulse buffer full, dropping trigger")
		}
	}
	end := func() { close(s.pulses) }
	if err := s.driver.start(emit, end); err != nil {
		return fmt.Errorf("open trigger device: %w", err)
	}
	s.open = true
	return nil
}

func (s *source) WaitForFirst(ctx context.Context, skip int) (Event, error) {
	if !s.open {
		return Event{}, ErrNotOpen
	}
	if skip < 0 {
		skip = 0
	}

	for {
		select {
		case t, ok := <-s.pulses:
			if !ok {
				return Event{}, ErrSourceClosed
			}
			s.count++
			if s.count <= skip {
				s.logger.Debug().Int("trigger", s.count-1).Msg("skipping trigger")
				continue
			}
			s.epoch = t
			ev := Event{Index: s.count - 1, Onset: 0, Time: t}
			return ev, nil
		case <-ctx.Done():
			return Event{}, fmt.Errorf("waiting for first trigger: %w", ctx.Err())
		}
	}
}

func (s *source) Poll() (Event, bool, error) {
	if !s.open {
		return Event{}, false, ErrNotOpen
	}
	select {
	case t, ok := <-s.pulses:
		if !ok {
			return Event{}, false, ErrSourceClosed
		}
		s.count++
		ev := Event{Index: s.count - 1, Onset: t.Sub(s.epoch), Time: t}
		return ev, true, nil
	default:
		return Event{}, false, nil
	}
}

func (s *source) Close() error {
	if !s.open || s.closed {
		return nil
	}
	s.closed = true
	return s.driver.stop()
}
