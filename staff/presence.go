package staff

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"restobar/model"
)

type OnlineUser struct {
	ID       uuid.UUID      `json:"id"`
	FullName string         `json:"full_name"`
	Role     model.UserRole `json:"role"`
	OnlineAt time.Time      `json:"online_at"`
}

// Presence tracks the users that hold at least one open stream.
type Presence struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*presenceEntry
	now   func() time.Time
}

type presenceEntry struct {
	user  OnlineUser
	conns int
}

func NewPresence() *Presence {
	return &Presence{users: make(map[uuid.UUID]*presenceEntry), now: time.Now}
}

// Join marks the user online and returns the function that ends this
// connection. The user goes offline when the last connection ends.
func (p *Presence) Join(profile model.Profile) func() {
	p.mu.Lock()
	e, ok := p.users[profile.ID]
	if !ok {
		e = &presenceEntry{user: OnlineUser{ID: profile.ID, OnlineAt: p.now()}}
		p.users[profile.ID] = e
	}
	e.user.FullName = profile.FullName
	e.user.Role = profile.Role
	e.conns++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			e.conns--
			if e.conns <= 0 && p.users[profile.ID] == e {
				delete(p.users, profile.ID)
			}
		})
	}
}

// Drop removes the user regardless of open connections.
func (p *Presence) Drop(userID uuid.UUID) {
	p.mu.Lock()
	delete(p.users, userID)
	p.mu.Unlock()
}

func (p *Presence) Online() []OnlineUser {
	p.mu.RLock()
	out := make([]OnlineUser, 0, len(p.users))
	for _, e := range p.users {
		out = append(out, e.user)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}
