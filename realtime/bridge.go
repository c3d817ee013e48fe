package realtime

import (
	"context"
	"encoding/json"
)

// Bridge connects the local hub to a shared broker so that several service
// instances see each other's changes.
type Bridge interface {
	Run(ctx context.Context) error
	Close() error
}

// localOnly selects events produced by this process, which are the only ones
// a bridge forwards.
func localOnly(h *Hub) Filter {
	return Filter{Match: func(e ChangeEvent) bool { return e.Origin == h.Origin() }}
}

// decodeRemote parses a broker payload and reports whether it came from
// another process.
func decodeRemote(h *Hub, data []byte) (ChangeEvent, bool) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return e, false
	}
	if e.Table == "" || e.Origin == h.Origin() {
		return e, false
	}
	return e, true
}
