package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// serialDriver detects triggers as a sync byte on a serial line. Scanner
// sync boxes typically send a single ASCII character per volume.
type serialDriver struct {
	cfg    SerialConfig
	logger zerolog.Logger

	port serial.Port
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newSerialDriver(cfg SerialConfig, logger zerolog.Logger) *serialDriver {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	return &serialDriver{cfg: cfg, logger: logger, done: make(chan struct{})}
}

func (d *serialDriver) start(emit func(time.Time), _ func()) error {
	if d.cfg.Port == "" {
		return fmt.Errorf("serial: no port configured")
	}
	if len(d.cfg.Sync) != 1 {
		return fmt.Errorf("serial: sync must be a single byte, got %q", d.cfg.Sync)
	}
	syncByte := d.cfg.Sync[0]

	mode := &serial.Mode{
		BaudRate: d.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", d.cfg.Port, err)
	}
	d.port = port

	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return fmt.Errorf("serial: flush %s: %w", d.cfg.Port, err)
	}

	d.logger.Debug().
		Str("port", d.cfg.Port).
		Int("baudrate", d.cfg.BaudRate).
		Str("sync", d.cfg.Sync).
		Msg("serial port open")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		buf := make([]byte, 64)
		for {
			n, err := port.Read(buf)
			if err != nil {
				select {
				case <-d.done:
				default:
					d.logger.Error().Err(err).Msg("serial read failed")
				}
				return
			}
			now := time.Now()
			for _, b := range buf[:n] {
				if b == syncByte {
					emit(now)
				}
			}
		}
	}()
	return nil
}

func (d *serialDriver) stop() error {
	d.once.Do(func() { close(d.done) })
	var err error
	if d.port != nil {
		err = d.port.Close()
	}
	d.wg.Wait()
	return err
}
