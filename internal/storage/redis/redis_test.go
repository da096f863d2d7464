package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mrilab/scantrig/internal/config"
	"github.com/mrilab/scantrig/internal/stats"
	"github.com/mrilab/scantrig/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := config.RedisConfig{
		Host:        mr.Addr(), // full "host:port" address
		Port:        0,
		DB:          0,
		DialTimeout: "5s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	return store
}

func testSession(id string, startedAt time.Time) storage.Session {
	deltas := []time.Duration{time.Second, 1020 * time.Millisecond}
	return storage.Session{
		ID:        id,
		StartedAt: startedAt,
		Device:    "serial",
		SkipScans: 0,
		Triggers:  3,
		Onsets:    []time.Duration{0, time.Second, 2 * time.Second},
		Deltas:    deltas,
		Summary:   stats.Summarize(deltas),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	want := testSession("session-1", time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC))

	if err := store.Sessions().Put(ctx, want); err != nil {
		t.Fatalf("put session: %v", err)
	}

	got, err := store.Sessions().Get(ctx, "session-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ID != want.ID || got.Device != want.Device || got.SkipScans != want.SkipScans {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("started_at = %s, want %s", got.StartedAt, want.StartedAt)
	}
	if len(got.Deltas) != 2 || got.Deltas[1] != want.Deltas[1] {
		t.Fatalf("deltas = %v, want %v", got.Deltas, want.Deltas)
	}
	if got.Summary.Count != want.Summary.Count {
		t.Fatalf("summary = %+v, want %+v", got.Summary, want.Summary)
	}
}

func TestGetMissing(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	if _, err := store.Sessions().Get(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing: got %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Sessions().Put(ctx, testSession(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	sessions, err := store.Sessions().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if sessions[i].ID != want {
			t.Fatalf("sessions[%d] = %s, want %s", i, sessions[i].ID, want)
		}
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Sessions().Put(ctx, testSession("session-1", time.Now().UTC())); err != nil {
		t.Fatalf("put session: %v", err)
	}
	if err := store.Sessions().Delete(ctx, "session-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.Sessions().Get(ctx, "session-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := store.Sessions().Delete(ctx, "session-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
}
