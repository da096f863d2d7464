// Package recorder runs one trigger-timing session: wait for the first
// trigger, poll for the rest, and account inter-trigger delta times.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrilab/scantrig/internal/metrics"
	"github.com/mrilab/scantrig/internal/stats"
	"github.com/mrilab/scantrig/internal/storage"
	"github.com/mrilab/scantrig/internal/trigger"
)

// Config holds the run parameters.
type Config struct {
	Device      string
	SkipScans   int
	WaitTimeout time.Duration
	RunTimeout  time.Duration

	// EscapeKey ends the run when seen on the key stream.
	EscapeKey byte
}

// StopReason records why the polling loop ended.
type StopReason string

const (
	StopEscape   StopReason = "escape"
	StopTimeout  StopReason = "timeout"
	StopEndOfRun StopReason = "end of run"
	StopSignal   StopReason = "signal"
)

// pollInterval paces the loop. Scanner TRs are hundreds of milliseconds at
// the fastest; 1ms keeps timestamp jitter well below that.
const pollInterval = time.Millisecond

// Recorder drives a trigger source through one session.
type Recorder struct {
	cfg    Config
	source trigger.Source
	keys   <-chan byte
	logger zerolog.Logger
}

// New creates a recorder. keys may be nil when no terminal is attached; the
// run then ends on timeout, end of run, or signal only.
func New(cfg Config, source trigger.Source, keys <-chan byte, logger zerolog.Logger) *Recorder {
	if cfg.EscapeKey == 0 {
		cfg.EscapeKey = 0x1b
	}
	return &Recorder{
		cfg:    cfg,
		source: source,
		keys:   keys,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// Run executes the session. The source must already be open. The returned
// session holds every accepted trigger and the delta-time summary.
func (r *Recorder) Run(ctx context.Context) (storage.Session, StopReason, error) {
	session := storage.Session{
		ID:        storage.NewID(),
		Device:    r.cfg.Device,
		SkipScans: r.cfg.SkipScans,
	}

	r.logger.Info().
		Str("device", r.cfg.Device).
		Int("skip_scans", r.cfg.SkipScans).
		Msg("Waiting for the trigger")

	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.WaitTimeout)
	defer cancel()

	first, err := r.source.WaitForFirst(waitCtx, r.cfg.SkipScans)
	if err != nil {
		return session, "", fmt.Errorf("wait for first trigger: %w", err)
	}
	metrics.TriggersSkipped.WithLabelValues(r.cfg.Device).Add(float64(r.cfg.SkipScans))
	metrics.TriggersTotal.WithLabelValues(r.cfg.Device).Inc()

	session.StartedAt = first.Time
	session.Triggers = 1
	session.Onsets = append(session.Onsets, first.Onset)
	r.logTrigger(first, 0)

	prev := first
	deadline := time.NewTimer(r.cfg.RunTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	reason := StopReason("")
	for reason == "" {
		ev, ok, err := r.source.Poll()
		switch {
		case errors.Is(err, trigger.ErrSourceClosed):
			reason = StopEndOfRun
			continue
		case err != nil:
			metrics.SourceErrors.WithLabelValues(r.cfg.Device).Inc()
			return session, "", fmt.Errorf("poll trigger: %w", err)
		case ok:
			delta := ev.Time.Sub(prev.Time)
			session.Triggers++
			session.Onsets = append(session.Onsets, ev.Onset)
			session.Deltas = append(session.Deltas, delta)
			metrics.TriggersTotal.WithLabelValues(r.cfg.Device).Inc()
			metrics.TriggerInterval.WithLabelValues(r.cfg.Device).Observe(delta.Seconds())
			r.logTrigger(ev, delta)
			prev = ev
			continue
		}

		select {
		case b := <-r.keysOrNil():
			if b == r.cfg.EscapeKey {
				reason = StopEscape
			}
		case <-deadline.C:
			reason = StopTimeout
		case <-ctx.Done():
			reason = StopSignal
		case <-ticker.C:
		}
	}

	session.Summary = stats.Summarize(session.Deltas)

	r.logger.Info().
		Str("reason", string(reason)).
		Int("triggers", session.Triggers).
		Msg("run finished")

	return session, reason, nil
}

func (r *Recorder) keysOrNil() <-chan byte {
	return r.keys // receiving from a nil channel blocks, and select moves on
}

func (r *Recorder) logTrigger(ev trigger.Event, delta time.Duration) {
	r.logger.Info().
		Int("trigger", ev.Index).
		Float64("onset_s", ev.Onset.Seconds()).
		Float64("delta_s", delta.Seconds()).
		Int("skip_scans", r.cfg.SkipScans).
		Msg("TRIGGER")
}
