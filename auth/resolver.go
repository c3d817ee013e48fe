package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"restobar/gateway"
	"restobar/model"
	"restobar/utils"
)

type ProfileReader interface {
	ProfileByID(ctx context.Context, id uuid.UUID) (model.Profile, error)
}

// Resolver serves profiles with a stale-while-revalidate policy: fetches are
// bounded, and a failed or slow fetch answers with the last known-good copy.
// Only a missing row clears the cache.
type Resolver struct {
	store   ProfileReader
	timeout time.Duration

	mu    sync.RWMutex
	cache map[uuid.UUID]model.Profile
}

func NewResolver(store ProfileReader, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{store: store, timeout: timeout, cache: make(map[uuid.UUID]model.Profile)}
}

func (r *Resolver) Profile(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	b := utils.Bounded[model.Profile]{
		Timeout:  r.timeout,
		Policy:   utils.ReturnStale,
		Fallback: func() (model.Profile, bool) { return r.Cached(id) },
		Terminal: func(err error) bool { return errors.Is(err, gateway.ErrNotFound) },
	}
	p, err := b.Do(ctx, func(ctx context.Context) (model.Profile, error) {
		p, err := r.store.ProfileByID(ctx, id)
		if err == nil {
			r.Put(p)
		}
		return p, err
	})
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		r.Forget(id)
		return model.Profile{}, ErrProfileNotFound
	case err != nil:
		return model.Profile{}, err
	}
	return p, nil
}

func (r *Resolver) Cached(id uuid.UUID) (model.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.cache[id]
	return p, ok
}

func (r *Resolver) Put(p model.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[p.ID] = p
}

func (r *Resolver) Forget(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, id)
}
