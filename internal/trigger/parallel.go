package trigger

import (
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Linux ppdev ioctl numbers (linux/ppdev.h).
const (
	ppClaim   = 0x708b     // PPCLAIM, _IO('p', 0x8b)
	ppRelease = 0x708c     // PPRELEASE, _IO('p', 0x8c)
	ppRStatus = 0x80017081 // PPRSTATUS, _IOR('p', 0x81, unsigned char)
)

// statusPin maps a DB-25 status pin to its bit in the status register.
// Pin 11 (BUSY) is inverted by the port hardware.
type statusPin struct {
	mask     byte
	inverted bool
}

var statusPins = map[int]statusPin{
	10: {mask: 0x40},                 // ACK
	11: {mask: 0x80, inverted: true}, // BUSY
	12: {mask: 0x20},                 // PE
	13: {mask: 0x10},                 // SELECT
	15: {mask: 0x08},                 // ERROR
}

const defaultParallelPoll = time.Millisecond

// parallelDriver detects triggers as edges on a parallel port status pin,
// read through the Linux ppdev interface.
type parallelDriver struct {
	cfg    ParallelConfig
	pin    statusPin
	logger zerolog.Logger

	file *os.File
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newParallelDriver(cfg ParallelConfig, logger zerolog.Logger) (*parallelDriver, error) {
	pin, ok := statusPins[cfg.Pin]
	if !ok {
		return nil, fmt.Errorf("parallel: pin %d is not a status pin (10-13, 15)", cfg.Pin)
	}
	switch cfg.Edge {
	case Rising, Falling:
	case "":
		cfg.Edge = Rising
	default:
		return nil, fmt.Errorf("parallel: unknown edge %q", cfg.Edge)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultParallelPoll
	}
	return &parallelDriver{cfg: cfg, pin: pin, logger: logger, done: make(chan struct{})}, nil
}

func (d *parallelDriver) start(emit func(time.Time), _ func()) error {
	if d.cfg.Device == "" {
		return fmt.Errorf("parallel: no device configured")
	}

	f, err := os.OpenFile(d.cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("parallel: open %s: %w", d.cfg.Device, err)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ppClaim, 0); errno != 0 {
		f.Close()
		return fmt.Errorf("parallel: claim %s: %w", d.cfg.Device, errno)
	}
	d.file = f

	d.logger.Debug().
		Str("device", d.cfg.Device).
		Int("pin", d.cfg.Pin).
		Str("edge", string(d.cfg.Edge)).
		Msg("parallel port claimed")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(d.cfg.PollInterval)
		defer ticker.Stop()

		level, err := d.readPin()
		if err != nil {
			d.logger.Error().Err(err).Msg("parallel status read failed")
			return
		}

		for {
			select {
			case <-ticker.C:
				cur, err := d.readPin()
				if err != nil {
					select {
					case <-d.done:
					default:
						d.logger.Error().Err(err).Msg("parallel status read failed")
					}
					return
				}
				if cur != level {
					if (d.cfg.Edge == Rising && cur) || (d.cfg.Edge == Falling && !cur) {
						emit(time.Now())
					}
					level = cur
				}
			case <-d.done:
				return
			}
		}
	}()
	return nil
}

// readPin samples the status register and reports the logical pin level.
func (d *parallelDriver) readPin() (bool, error) {
	var status byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), ppRStatus, uintptr(unsafe.Pointer(&status)))
	if errno != 0 {
		return false, errno
	}
	high := status&d.pin.mask != 0
	if d.pin.inverted {
		high = !high
	}
	return high, nil
}

func (d *parallelDriver) stop() error {
	d.once.Do(func() { close(d.done) })
	var err error
	if d.file != nil {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), ppRelease, 0)
		if errno != 0 {
			err = fmt.Errorf("parallel: release: %w", errno)
		}
		if cerr := d.file.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}
	d.wg.Wait()
	return err
}
