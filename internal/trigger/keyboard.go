package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// keyboardDriver treats presses of the sync key as triggers. It consumes a
// raw key stream supplied by the caller so the same terminal reader can
// also serve the escape watcher.
type keyboardDriver struct {
	cfg    KeyboardConfig
	logger zerolog.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newKeyboardDriver(cfg KeyboardConfig, logger zerolog.Logger) *keyboardDriver {
	if cfg.SyncKey == "" {
		cfg.SyncKey = "t"
	}
	return &keyboardDriver{cfg: cfg, logger: logger, done: make(chan struct{})}
}

func (d *keyboardDriver) start(emit func(time.Time), _ func()) error {
	if d.cfg.Keys == nil {
		return fmt.Errorf("keyboard: no key stream attached")
	}
	if len(d.cfg.SyncKey) != 1 {
		return fmt.Errorf("keyboard: sync key must be a single character, got %q", d.cfg.SyncKey)
	}
	syncKey := d.cfg.SyncKey[0]

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case b, ok := <-d.cfg.Keys:
				if !ok {
					return
				}
				if b == syncKey {
					emit(time.Now())
				}
			case <-d.done:
				return
			}
		}
	}()
	return nil
}

func (d *keyboardDriver) stop() error {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
	return nil
}
