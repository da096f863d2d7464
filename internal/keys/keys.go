// Package keys reads single keypresses from the controlling terminal. One
// reader serves both the keyboard trigger source and the escape watcher.
package keys

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Escape is the byte the escape key produces in raw mode.
const Escape byte = 0x1b

// Reader puts the terminal into raw mode and streams its bytes.
type Reader struct {
	file    *os.File
	restore *term.State
	ch      chan byte
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewReader starts reading keypresses from f. When f is a terminal it is
// switched to raw mode until Close.
func NewReader(f *os.File, logger zerolog.Logger) (*Reader, error) {
	r := &Reader{
		file:   f,
		ch:     make(chan byte, 64),
		logger: logger.With().Str("component", "keys").Logger(),
	}

	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, err
		}
		r.restore = state
	}

	go r.loop()
	return r, nil
}

// Keys returns the raw key stream.
func (r *Reader) Keys() <-chan byte {
	return r.ch
}

func (r *Reader) loop() {
	buf := make([]byte, 1)
	for {
		n, err := r.file.Read(buf)
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if !closed {
				r.logger.Debug().Err(err).Msg("key read ended")
			}
			return
		}
		if n == 0 {
			continue
		}
		select {
		case r.ch <- buf[0]:
		default:
			// Nobody draining; drop rather than stall the terminal.
		}
	}
}

// Close restores the terminal state. The read loop ends with the process;
// its channel sends never block.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.restore != nil {
		return term.Restore(int(r.file.Fd()), r.restore)
	}
	return nil
}
