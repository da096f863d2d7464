package trigger

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// pulseDriver generates triggers internally at a fixed repetition time. With
// volumes == 0 it runs until stopped (dummy device); otherwise it emits
// exactly volumes pulses and ends the run (scanner emulator).
type pulseDriver struct {
	tr      time.Duration
	volumes int
	logger  zerolog.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newPulseDriver(tr time.Duration, volumes int, logger zerolog.Logger) *pulseDriver {
	if tr <= 0 {
		tr = time.Second
	}
	return &pulseDriver{
		tr:      tr,
		volumes: volumes,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (d *pulseDriver) start(emit func(time.Time), end func()) error {
	d.logger.Debug().
		Dur("tr", d.tr).
		Int("volumes", d.volumes).
		Msg("starting pulse generator")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// First pulse fires immediately, like a scanner already running
		// when the session starts.
		emit(time.Now())
		sent := 1

		ticker := time.NewTicker(d.tr)
		defer ticker.Stop()

		for {
			if d.volumes > 0 && sent >= d.volumes {
				end()
				return
			}
			select {
			case t := <-ticker.C:
				emit(t)
				sent++
			case <-d.done:
				return
			}
		}
	}()
	return nil
}

func (d *pulseDriver) stop() error {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
	return nil
}
