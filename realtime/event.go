package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// ChangeEvent describes one committed row change. Record carries the row as
// written by the producer and may be partial for updates; consumers that need
// the full row re-read it by ID.
type ChangeEvent struct {
	Table  string          `json:"table"`
	Op     Op              `json:"op"`
	ID     string          `json:"id,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
	Origin string          `json:"origin"`
	At     time.Time       `json:"at"`
}

var ErrNoRecord = errors.New("realtime: event has no record")

func (e ChangeEvent) Decode(out interface{}) error {
	if len(e.Record) == 0 {
		return ErrNoRecord
	}
	return json.Unmarshal(e.Record, out)
}

// UintID parses the event ID for tables keyed by serial integers.
func (e ChangeEvent) UintID() (uint, bool) {
	n, err := strconv.ParseUint(e.ID, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
