package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNewUnknownDevice(t *testing.T) {
	_, err := New("optical", Config{}, testLogger())
	if err == nil {
		t.Fatal("expected error for unknown device type")
	}
}

func TestNewKnownDevices(t *testing.T) {
	cfg := Config{
		Keyboard: KeyboardConfig{SyncKey: "t", Keys: make(chan byte)},
		Dummy:    DummyConfig{TR: time.Second},
		Emulator: EmulatorConfig{TR: time.Second, Volumes: 10},
	}
	for _, dt := range []string{DeviceKeyboard, DeviceDummy, DeviceEmulator} {
		if _, err := New(dt, cfg, testLogger()); err != nil {
			t.Fatalf("New(%s): %v", dt, err)
		}
	}
}

func TestParallelBadPin(t *testing.T) {
	_, err := New(DeviceParallel, Config{
		Parallel: ParallelConfig{Device: "/dev/parport0", Pin: 2, Edge: Rising},
	}, testLogger())
	if err == nil {
		t.Fatal("expected error for non-status pin")
	}
}

func TestNotOpen(t *testing.T) {
	src, err := New(DeviceDummy, Config{Dummy: DummyConfig{TR: time.Second}}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := src.WaitForFirst(context.Background(), 0); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("WaitForFirst before Open: got %v, want ErrNotOpen", err)
	}
	if _, _, err := src.Poll(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Poll before Open: got %v, want ErrNotOpen", err)
	}
}

func TestDummySkipAccounting(t *testing.T) {
	src, err := New(DeviceDummy, Config{Dummy: DummyConfig{TR: 5 * time.Millisecond}}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	const skip = 3
	first, err := src.WaitForFirst(ctx, skip)
	if err != nil {
		t.Fatalf("WaitForFirst: %v", err)
	}
	if first.Index != skip {
		t.Fatalf("first trigger index = %d, want %d", first.Index, skip)
	}
	if first.Onset != 0 {
		t.Fatalf("first trigger onset = %s, want 0", first.Onset)
	}

	// Wait for at least one more pulse and poll it out.
	deadline := time.After(time.Second)
	for {
		ev, ok, err := src.Poll()
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if ok {
			if ev.Index != skip+1 {
				t.Fatalf("second trigger index = %d, want %d", ev.Index, skip+1)
			}
			if ev.Onset <= 0 {
				t.Fatalf("second trigger onset = %s, want > 0", ev.Onset)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no trigger polled within a second")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestEmulatorEndOfRun(t *testing.T) {
	const volumes = 4
	src, err := New(DeviceEmulator, Config{
		Emulator: EmulatorConfig{TR: 2 * time.Millisecond, Volumes: volumes},
	}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := src.WaitForFirst(ctx, 0); err != nil {
		t.Fatalf("WaitForFirst: %v", err)
	}

	got := 1
	deadline := time.After(time.Second)
	for {
		_, ok, err := src.Poll()
		if errors.Is(err, ErrSourceClosed) {
			break
		}
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if ok {
			got++
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("emulator never ended; got %d triggers", got)
		case <-time.After(time.Millisecond):
		}
	}
	if got != volumes {
		t.Fatalf("got %d triggers, want %d", got, volumes)
	}
}

func TestWaitForFirstTimeout(t *testing.T) {
	keys := make(chan byte)
	src, err := New(DeviceKeyboard, Config{
		Keyboard: KeyboardConfig{SyncKey: "t", Keys: keys},
	}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := src.WaitForFirst(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitForFirst with no triggers: got %v, want deadline exceeded", err)
	}
}

func TestKeyboardSyncKeyFilter(t *testing.T) {
	keys := make(chan byte, 8)
	src, err := New(DeviceKeyboard, Config{
		Keyboard: KeyboardConfig{SyncKey: "t", Keys: keys},
	}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	// Non-sync keys must not trigger.
	keys <- 'a'
	keys <- 'x'
	keys <- 't'

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := src.WaitForFirst(ctx, 0)
	if err != nil {
		t.Fatalf("WaitForFirst: %v", err)
	}
	if first.Index != 0 {
		t.Fatalf("first trigger index = %d, want 0", first.Index)
	}

	if _, ok, err := src.Poll(); err != nil || ok {
		t.Fatalf("Poll after single sync key: ok=%v err=%v, want no pending trigger", ok, err)
	}
}
