package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the per-trigger rows of a session: trigger number, onset
// time and delta time in seconds. The first accepted trigger has no delta.
func (s Session) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"trigger", "onset_s", "delta_s"}); err != nil {
		return err
	}

	for i, onset := range s.Onsets {
		row := []string{
			strconv.Itoa(s.SkipScans + i),
			fmt.Sprintf("%.6f", onset.Seconds()),
			"",
		}
		if i > 0 && i-1 < len(s.Deltas) {
			row[2] = fmt.Sprintf("%.6f", s.Deltas[i-1].Seconds())
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
