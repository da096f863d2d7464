package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mrilab/scantrig/internal/stats"
	"github.com/mrilab/scantrig/internal/storage"
)

// sessionFields converts a Session to a Redis hash. Scalar fields are stored
// directly; the delta and onset series and the summary are JSON-encoded.
func sessionFields(session storage.Session) (map[string]interface{}, error) {
	onsets, err := json.Marshal(session.Onsets)
	if err != nil {
		return nil, fmt.Errorf("marshal onsets: %w", err)
	}
	deltas, err := json.Marshal(session.Deltas)
	if err != nil {
		return nil, fmt.Errorf("marshal deltas: %w", err)
	}
	summary, err := json.Marshal(session.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	return map[string]interface{}{
		"id":         session.ID,
		"started_at": session.StartedAt.Format(time.RFC3339Nano),
		"device":     session.Device,
		"skip_scans": session.SkipScans,
		"triggers":   session.Triggers,
		"onsets":     string(onsets),
		"deltas":     string(deltas),
		"summary":    string(summary),
	}, nil
}

// parseSession converts a Redis hash to a Session.
func parseSession(data map[string]string) (*storage.Session, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	startedAt, err := time.Parse(time.RFC3339Nano, data["started_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	skipScans, err := strconv.Atoi(data["skip_scans"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse skip_scans: %w", err)
	}

	triggers, err := strconv.Atoi(data["triggers"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse triggers: %w", err)
	}

	var onsets, deltas []time.Duration
	if err := json.Unmarshal([]byte(data["onsets"]), &onsets); err != nil {
		return nil, fmt.Errorf("failed to parse onsets: %w", err)
	}
	if err := json.Unmarshal([]byte(data["deltas"]), &deltas); err != nil {
		return nil, fmt.Errorf("failed to parse deltas: %w", err)
	}

	var summary stats.Summary
	if err := json.Unmarshal([]byte(data["summary"]), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}

	return &storage.Session{
		ID:        data["id"],
		StartedAt: startedAt,
		Device:    data["device"],
		SkipScans: skipScans,
		Triggers:  triggers,
		Onsets:    onsets,
		Deltas:    deltas,
		Summary:   summary,
	}, nil
}
