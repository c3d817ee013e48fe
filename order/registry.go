package order

import (
	"sync"

	"github.com/google/uuid"
)

type draftKey struct {
	user  uuid.UUID
	table int
}

// Registry keeps one draft cart per user and table.
type Registry struct {
	mu     sync.Mutex
	drafts map[draftKey]*Cart
}

func NewRegistry() *Registry {
	return &Registry{drafts: make(map[draftKey]*Cart)}
}

// Get returns a copy of the draft, empty if none exists.
func (r *Registry) Get(user uuid.UUID, table int) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.drafts[draftKey{user, table}]; ok {
		return c.Clone()
	}
	return NewCart()
}

// Update applies fn to the draft under the registry lock and returns a copy
// of the result. Changes are kept only when fn succeeds.
func (r *Registry) Update(user uuid.UUID, table int, fn func(*Cart) error) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := draftKey{user, table}
	c, ok := r.drafts[key]
	if !ok {
		c = NewCart()
	}
	work := c.Clone()
	if err := fn(work); err != nil {
		return c.Clone(), err
	}
	if work.Empty() {
		delete(r.drafts, key)
	} else {
		r.drafts[key] = work
	}
	return work.Clone(), nil
}

func (r *Registry) Clear(user uuid.UUID, table int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, draftKey{user, table})
}

// ForgetUser drops every draft of a user, for example on logout.
func (r *Registry) ForgetUser(user uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.drafts {
		if k.user == user {
			delete(r.drafts, k)
		}
	}
}
