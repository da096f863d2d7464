package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// cedrusDriver reads scanner triggers from a Cedrus response pad (Lumina,
// RB-series) over its XID serial link. XID key events are 6-byte packets
// with a 'k' header; the trigger input is reported as a key press on the
// configured line.
type cedrusDriver struct {
	cfg    CedrusConfig
	logger zerolog.Logger

	port serial.Port
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newCedrusDriver(cfg CedrusConfig, logger zerolog.Logger) *cedrusDriver {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	return &cedrusDriver{cfg: cfg, logger: logger, done: make(chan struct{})}
}

func (d *cedrusDriver) start(emit func(time.Time), _ func()) error {
	if d.cfg.Port == "" {
		return fmt.Errorf("cedrus: no port configured")
	}
	if d.cfg.SyncLine < 0 || d.cfg.SyncLine > 7 {
		return fmt.Errorf("cedrus: sync line %d out of range 0-7", d.cfg.SyncLine)
	}

	mode := &serial.Mode{
		BaudRate: d.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("cedrus: open %s: %w", d.cfg.Port, err)
	}
	d.port = port

	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return fmt.Errorf("cedrus: flush %s: %w", d.cfg.Port, err)
	}

	d.logger.Debug().
		Str("port", d.cfg.Port).
		Int("sync_line", d.cfg.SyncLine).
		Msg("cedrus pad open")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		var packet [6]byte
		filled := 0
		buf := make([]byte, 64)

		for {
			n, err := d.port.Read(buf)
			if err != nil {
				select {
				case <-d.done:
				default:
					d.logger.Error().Err(err).Msg("cedrus read failed")
				}
				return
			}
			now := time.Now()
			for _, b := range buf[:n] {
				if filled == 0 && b != 'k' {
					continue // resync on the packet header
				}
				packet[filled] = b
				filled++
				if filled < len(packet) {
					continue
				}
				filled = 0

				// Byte 1: bits 0-3 port, bit 4 press/release,
				// bits 5-7 key number.
				pressed := packet[1]&0x10 != 0
				key := int(packet[1]>>5) & 0x07
				if pressed && key == d.cfg.SyncLine {
					emit(now)
				}
			}
		}
	}()
	return nil
}

func (d *cedrusDriver) stop() error {
	d.once.Do(func() { close(d.done) })
	var err error
	if d.port != nil {
		err = d.port.Close()
	}
	d.wg.Wait()
	return err
}
