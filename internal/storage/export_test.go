package storage

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func TestWriteCSV(t *testing.T) {
	session := Session{
		ID:        "abc",
		Device:    "dummy",
		SkipScans: 2,
		Triggers:  3,
		Onsets:    []time.Duration{0, time.Second, 2100 * time.Millisecond},
		Deltas:    []time.Duration{time.Second, 1100 * time.Millisecond},
	}

	var sb strings.Builder
	if err := session.WriteCSV(&sb); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 4 { // header + one row per trigger
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][0] != "trigger" || rows[0][2] != "delta_s" {
		t.Fatalf("header = %v", rows[0])
	}
	// Trigger numbering starts at the skip count.
	if rows[1][0] != "2" || rows[3][0] != "4" {
		t.Fatalf("trigger numbers = %s, %s, want 2 and 4", rows[1][0], rows[3][0])
	}
	if rows[1][2] != "" {
		t.Fatalf("first trigger delta = %q, want empty", rows[1][2])
	}
	if rows[2][2] != "1.000000" {
		t.Fatalf("second trigger delta = %q, want 1.000000", rows[2][2])
	}
	if rows[3][1] != "2.100000" {
		t.Fatalf("third trigger onset = %q, want 2.100000", rows[3][1])
	}
}
