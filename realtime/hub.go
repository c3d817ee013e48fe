package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBuffer = 64

// Filter selects the events a subscription receives. Zero fields match
// everything.
type Filter struct {
	Table string
	Ops   []Op
	Match func(ChangeEvent) bool
}

func (f Filter) accepts(e ChangeEvent) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if len(f.Ops) > 0 {
		found := false
		for _, op := range f.Ops {
			if op == e.Op {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Match != nil && !f.Match(e) {
		return false
	}
	return true
}

type Subscription struct {
	C <-chan ChangeEvent
	// Lag receives a signal after the subscription missed at least one
	// event. Consumers that keep derived state must reload it.
	Lag <-chan struct{}

	id     uint64
	ch     chan ChangeEvent
	lag    chan struct{}
	filter Filter
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Hub fans change events out to subscriptions. Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the event and is told
// so on its Lag channel.
type Hub struct {
	origin string
	buffer int

	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	next    uint64
	dropped uint64
}

type HubOption func(*Hub)

func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithOrigin(origin string) HubOption {
	return func(h *Hub) {
		if origin != "" {
			h.origin = origin
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		origin: uuid.NewString(),
		buffer: defaultBuffer,
		subs:   make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Origin identifies this process on shared brokers.
func (h *Hub) Origin() string {
	return h.origin
}

func (h *Hub) Subscribe(f Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	ch := make(chan ChangeEvent, h.buffer)
	lag := make(chan struct{}, 1)
	sub := &Subscription{C: ch, Lag: lag, id: h.next, ch: ch, lag: lag, filter: f, hub: h}
	h.subs[sub.id] = sub
	return sub
}

// Publish stamps a locally produced event and delivers it.
func (h *Hub) Publish(e ChangeEvent) {
	if e.Origin == "" {
		e.Origin = h.origin
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.deliver(e)
}

// Inject delivers an event received from another process unchanged.
func (h *Hub) Inject(e ChangeEvent) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.deliver(e)
}

// Dropped reports how many deliveries were skipped because a subscriber was
// full.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) deliver(e ChangeEvent) {
	h.mu.RLock()
	var missed uint64
	for _, sub := range h.subs {
		if !sub.filter.accepts(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			missed++
			select {
			case sub.lag <- struct{}{}:
			default:
			}
		}
	}
	h.mu.RUnlock()

	if missed > 0 {
		h.mu.Lock()
		h.dropped += missed
		h.mu.Unlock()
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}
