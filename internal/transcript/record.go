package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned when a line fails to parse or validate.
var ErrMalformedRecord = errors.New("transcript: malformed record") //nolint:gochecknoglobals // sentinel error

// Role identifies the author side of a record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Record is one transcript line. Timestamp is the record's identity key:
// sortable, unique per logical entry. Successive records sharing a key
// are revisions of one growing message; the latest revision wins.
type Record struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Stage     string `json:"stage,omitempty"`
}

// Validate checks the protocol constraints: a known role and a non-empty
// timestamp key.
func (r Record) Validate() error {
	switch r.Role {
	case RoleUser, RoleAgent:
	default:
		return fmt.Errorf("%w: role %q", ErrMalformedRecord, r.Role)
	}
	if r.Timestamp == "" {
		return fmt.Errorf("%w: empty timestamp", ErrMalformedRecord)
	}
	return nil
}

// EncodeLine renders r as one ndjson line, trailing newline included.
func EncodeLine(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("transcript.EncodeLine: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeLine parses and validates a single ndjson line.
func DecodeLine(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrMalformedRecord, err)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
