package realtime

import (
	"context"
	"sync"
)

type outboxKey struct{}

// Outbox holds events produced inside a database transaction until the
// transaction commits.
type Outbox struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func WithOutbox(ctx context.Context) (context.Context, *Outbox) {
	box := &Outbox{}
	return context.WithValue(ctx, outboxKey{}, box), box
}

func OutboxFrom(ctx context.Context) (*Outbox, bool) {
	if ctx == nil {
		return nil, false
	}
	box, ok := ctx.Value(outboxKey{}).(*Outbox)
	return box, ok
}

func (o *Outbox) Add(e ChangeEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}

// Flush publishes the held events in production order and empties the box.
func (o *Outbox) Flush(h *Hub) {
	o.mu.Lock()
	events := o.events
	o.events = nil
	o.mu.Unlock()

	for _, e := range events {
		h.Publish(e)
	}
}

func (o *Outbox) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = nil
}
