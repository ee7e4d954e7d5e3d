package transcript

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
)

// Lines can carry large generated captions; 1 MiB is far beyond any
// single record the pipeline produces.
const maxLineBytes = 1 << 20

// View is the reconciled, ordered form of a transcript. Records apply by
// timestamp key: a known key replaces that entry in place, an unknown key
// appends. Applying a record twice is a no-op, so replays and overlapping
// live streams converge to the same view.
type View struct {
	records []Record
	index   map[string]int
}

func NewView() *View {
	return &View{index: make(map[string]int)}
}

// Apply merges one record into the view and reports whether it replaced
// an existing entry.
func (v *View) Apply(rec Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if i, ok := v.index[rec.Timestamp]; ok {
		v.records[i] = rec
		return true, nil
	}
	v.index[rec.Timestamp] = len(v.records)
	v.records = append(v.records, rec)
	return false, nil
}

// Records returns the ordered entries as a copy.
func (v *View) Records() []Record {
	out := make([]Record, len(v.records))
	copy(out, v.records)
	return out
}

// Len reports the number of distinct entries.
func (v *View) Len() int { return len(v.records) }

// ReadAll reconciles every ndjson line from r into a fresh view.
// Malformed lines are skipped and counted, never fatal; the skip count
// lets callers surface protocol drift.
func ReadAll(r io.Reader) (*View, int, error) {
	view := NewView()
	skipped := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := DecodeLine(line)
		if err != nil {
			skipped++
			log.Warn().Err(err).Msg("transcript.ReadAll: skipping malformed line")
			continue
		}
		if _, err := view.Apply(rec); err != nil {
			skipped++
		}
	}
	if err := sc.Err(); err != nil {
		return view, skipped, fmt.Errorf("transcript.ReadAll: %w", err)
	}
	return view, skipped, nil
}
