// Package storage defines the session store interface and its record types.
// Two backends exist: bolt (single-file, the default) and redis (shared
// between consoles at a site).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mrilab/scantrig/internal/stats"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Sessions() SessionStore
}

// SessionStore persists completed trigger-timing runs.
type SessionStore interface {
	Put(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// List returns all sessions ordered by start time, newest first.
	List(ctx context.Context) ([]Session, error)
	Delete(ctx context.Context, id string) error
}

// Session is one completed run: every accepted trigger and the derived
// delta-time statistics.
type Session struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Device    string          `json:"device"`
	SkipScans int             `json:"skip_scans"`
	Triggers  int             `json:"triggers"`
	Onsets    []time.Duration `json:"onsets"`
	Deltas    []time.Duration `json:"deltas"`
	Summary   stats.Summary   `json:"summary"`
}
