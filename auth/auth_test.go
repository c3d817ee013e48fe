package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"restobar/gateway"
	"restobar/model"
	"restobar/realtime"
	"restobar/utils"
)

type fakeStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]model.Profile
	fail     error
	delay    time.Duration

	// slow session writes; a write that ignores ctx is already committing
	writeDelay     time.Duration
	writeHonorsCtx bool
}

func newFakeStore(profiles ...model.Profile) *fakeStore {
	s := &fakeStore{profiles: make(map[uuid.UUID]model.Profile)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *fakeStore) ProfileByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	s.mu.Lock()
	delay, fail := s.delay, s.fail
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.Profile{}, ctx.Err()
		}
	}
	if fail != nil {
		return model.Profile{}, fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, gateway.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ProfileByLogin(_ context.Context, identifier string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.DocumentID == identifier || (p.Email != nil && *p.Email == identifier) {
			return p, nil
		}
	}
	return model.Profile{}, gateway.ErrNotFound
}

func (s *fakeStore) SetSessionID(ctx context.Context, id uuid.UUID, sid *string) error {
	s.mu.Lock()
	delay, honors := s.writeDelay, s.writeHonorsCtx
	s.mu.Unlock()
	if delay > 0 {
		if honors {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			time.Sleep(delay)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[id]
	p.CurrentSessionID = sid
	s.profiles[id] = p
	return nil
}

func (s *fakeStore) set(fn func(*fakeStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func profile(t *testing.T, doc, password string, active bool) model.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	email := doc + "@resto.test"
	return model.Profile{
		ID:           uuid.New(),
		DocumentID:   doc,
		FullName:     "Ana Flores",
		Email:        &email,
		Role:         model.RoleWaiter,
		Active:       active,
		PasswordHash: string(hash),
	}
}

func newService(store Store) *Service {
	return NewService(store, utils.NewTokens("test"), 50*time.Millisecond, 100*time.Millisecond, nil)
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "AB123", NormalizeIdentifier(" ab123 "))
	assert.Equal(t, "ana@resto.test", NormalizeIdentifier("Ana@Resto.TEST"))
}

func TestLoginErrors(t *testing.T) {
	active := profile(t, "W100", "secret1", true)
	inactive := profile(t, "W200", "secret2", false)
	svc := newService(newFakeStore(active, inactive))

	tests := []struct {
		name       string
		identifier string
		password   string
		want       error
	}{
		{name: "unknown user", identifier: "nobody", password: "x", want: ErrUserNotFound},
		{name: "wrong password", identifier: "w100", password: "nope", want: ErrWrongPassword},
		{name: "inactive", identifier: "W200", password: "secret2", want: ErrInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.identifier, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoginSupersedesPreviousSession(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	store := newFakeStore(p)
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.Login(ctx, "w100", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.VerifySession(ctx, p.ID, first.SessionID))

	done, release := svc.WatchSession(p.ID, first.SessionID)
	defer release()

	second, err := svc.Login(ctx, "W100@resto.test", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	assert.ErrorIs(t, svc.VerifySession(ctx, p.ID, first.SessionID), ErrSessionSuperseded)
	assert.NoError(t, svc.VerifySession(ctx, p.ID, second.SessionID))

	select {
	case <-done:
	default:
		t.Fatal("first session was not signed out")
	}
}

func (s *fakeStore) sessionOf(id uuid.UUID) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id].CurrentSessionID
}

func TestLoginSessionWriteMatchesOutcome(t *testing.T) {
	tests := []struct {
		name    string
		honors  bool
		wantErr error
	}{
		{name: "slow write that commits", honors: false},
		{name: "slow write cancelled", honors: true, wantErr: utils.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profile(t, "W100", "secret1", true)
			store := newFakeStore(p)
			store.set(func(s *fakeStore) {
				s.writeDelay = 100 * time.Millisecond
				s.writeHonorsCtx = tt.honors
			})
			svc := newService(store)
			svc.login = 20 * time.Millisecond

			sess, err := svc.Login(context.Background(), "W100", "secret1")
			time.Sleep(150 * time.Millisecond)

			stored := store.sessionOf(p.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, stored, "failed login must not replace the session")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, sess.SessionID, *stored)
		})
	}
}

func TestLogoutClearsSessionAndNotifies(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	svc := newService(newFakeStore(p))
	ctx := context.Background()

	var signedOut []uuid.UUID
	svc.OnSignOut(func(id uuid.UUID) { signedOut = append(signedOut, id) })

	s, err := svc.Login(ctx, "W100", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, p.ID, s.SessionID))

	assert.ErrorIs(t, svc.VerifySession(ctx, p.ID, s.SessionID), ErrSessionSuperseded)
	assert.Equal(t, []uuid.UUID{p.ID}, signedOut)
}

func TestRefreshRequiresCurrentSession(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	svc := newService(newFakeStore(p))
	ctx := context.Background()

	first, err := svc.Login(ctx, "W100", "secret1")
	require.NoError(t, err)
	refreshed, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, refreshed.SessionID)

	_, err = svc.Login(ctx, "W100", "secret1")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionSuperseded)
}

func TestResolverKeepsStaleProfileOnError(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	store := newFakeStore(p)
	r := NewResolver(store, 30*time.Millisecond)
	ctx := context.Background()

	got, err := r.Profile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.FullName, got.FullName)

	store.set(func(s *fakeStore) { s.fail = errors.New("network down") })
	got, err = r.Profile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	store.set(func(s *fakeStore) { s.fail = nil; s.delay = time.Second })
	got, err = r.Profile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestResolverNotFoundClearsCache(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	store := newFakeStore(p)
	r := NewResolver(store, time.Second)
	ctx := context.Background()

	_, err := r.Profile(ctx, p.ID)
	require.NoError(t, err)

	store.set(func(s *fakeStore) { delete(s.profiles, p.ID) })
	_, err = r.Profile(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, cached := r.Cached(p.ID)
	assert.False(t, cached)
}

func TestMeAnswersWithinFailsafe(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	store := newFakeStore(p)
	store.delay = time.Second
	svc := newService(store)

	start := time.Now()
	res, err := svc.Me(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Profile)
	assert.False(t, res.Loading)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWatchSignsOutOnRemoteLogin(t *testing.T) {
	p := profile(t, "W100", "secret1", true)
	store := newFakeStore(p)
	svc := newService(store)
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := svc.Login(ctx, "W100", "secret1")
	require.NoError(t, err)
	done, release := svc.WatchSession(p.ID, s.SessionID)
	defer release()

	go svc.Watch(ctx, hub)
	other := "other-device"
	require.NoError(t, store.SetSessionID(ctx, p.ID, &other))

	assert.Eventually(t, func() bool {
		hub.Inject(realtime.ChangeEvent{Table: "profiles", Op: realtime.OpUpdate, ID: p.ID.String(), Origin: "node-b"})
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 20*time.Millisecond)
}
