package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrilab/scantrig/internal/trigger"
)

func newSource(t *testing.T, deviceType string, cfg trigger.Config) trigger.Source {
	t.Helper()
	src, err := trigger.New(deviceType, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New(%s): %v", deviceType, err)
	}
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestRunEmulatorEndOfRun(t *testing.T) {
	const volumes = 5
	src := newSource(t, trigger.DeviceEmulator, trigger.Config{
		Emulator: trigger.EmulatorConfig{TR: 5 * time.Millisecond, Volumes: volumes},
	})

	rec := New(Config{
		Device:      trigger.DeviceEmulator,
		WaitTimeout: time.Second,
		RunTimeout:  5 * time.Second,
	}, src, nil, zerolog.Nop())

	session, reason, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reason != StopEndOfRun {
		t.Fatalf("stop reason = %q, want %q", reason, StopEndOfRun)
	}
	if session.Triggers != volumes {
		t.Fatalf("triggers = %d, want %d", session.Triggers, volumes)
	}
	if len(session.Deltas) != volumes-1 {
		t.Fatalf("deltas = %d, want %d", len(session.Deltas), volumes-1)
	}
	if len(session.Onsets) != volumes {
		t.Fatalf("onsets = %d, want %d", len(session.Onsets), volumes)
	}
	if session.Summary.Count != volumes-1 {
		t.Fatalf("summary count = %d, want %d", session.Summary.Count, volumes-1)
	}
	if session.ID == "" {
		t.Fatal("session ID not set")
	}
}

func TestRunSkipScans(t *testing.T) {
	const volumes, skip = 6, 2
	src := newSource(t, trigger.DeviceEmulator, trigger.Config{
		Emulator: trigger.EmulatorConfig{TR: 5 * time.Millisecond, Volumes: volumes},
	})

	rec := New(Config{
		Device:      trigger.DeviceEmulator,
		SkipScans:   skip,
		WaitTimeout: time.Second,
		RunTimeout:  5 * time.Second,
	}, src, nil, zerolog.Nop())

	session, _, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if session.Triggers != volumes-skip {
		t.Fatalf("triggers = %d, want %d", session.Triggers, volumes-skip)
	}
	if len(session.Deltas) != volumes-skip-1 {
		t.Fatalf("deltas = %d, want %d", len(session.Deltas), volumes-skip-1)
	}
}

func TestRunEscape(t *testing.T) {
	src := newSource(t, trigger.DeviceDummy, trigger.Config{
		Dummy: trigger.DummyConfig{TR: 5 * time.Millisecond},
	})

	keys := make(chan byte, 1)
	rec := New(Config{
		Device:      trigger.DeviceDummy,
		WaitTimeout: time.Second,
		RunTimeout:  5 * time.Second,
	}, src, keys, zerolog.Nop())

	go func() {
		time.Sleep(30 * time.Millisecond)
		keys <- 0x1b
	}()

	session, reason, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reason != StopEscape {
		t.Fatalf("stop reason = %q, want %q", reason, StopEscape)
	}
	if session.Triggers < 1 {
		t.Fatalf("triggers = %d, want at least the first", session.Triggers)
	}
}

func TestRunTimeout(t *testing.T) {
	src := newSource(t, trigger.DeviceDummy, trigger.Config{
		Dummy: trigger.DummyConfig{TR: 5 * time.Millisecond},
	})

	rec := New(Config{
		Device:      trigger.DeviceDummy,
		WaitTimeout: time.Second,
		RunTimeout:  50 * time.Millisecond,
	}, src, nil, zerolog.Nop())

	_, reason, err := rec.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reason != StopTimeout {
		t.Fatalf("stop reason = %q, want %q", reason, StopTimeout)
	}
}

func TestRunWaitTimeout(t *testing.T) {
	keys := make(chan byte)
	src := newSource(t, trigger.DeviceKeyboard, trigger.Config{
		Keyboard: trigger.KeyboardConfig{SyncKey: "t", Keys: keys},
	})

	rec := New(Config{
		Device:      trigger.DeviceKeyboard,
		WaitTimeout: 20 * time.Millisecond,
		RunTimeout:  time.Second,
	}, src, keys, zerolog.Nop())

	if _, _, err := rec.Run(context.Background()); err == nil {
		t.Fatal("expected error when no first trigger arrives")
	}
}

func TestRunSignalCancel(t *testing.T) {
	src := newSource(t, trigger.DeviceDummy, trigger.Config{
		Dummy: trigger.DummyConfig{TR: 5 * time.Millisecond},
	})

	rec := New(Config{
		Device:      trigger.DeviceDummy,
		WaitTimeout: time.Second,
		RunTimeout:  5 * time.Second,
	}, src, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, reason, err := rec.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reason != StopSignal {
		t.Fatalf("stop reason = %q, want %q", reason, StopSignal)
	}
}
