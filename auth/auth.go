package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
	"restobar/realtime"
	"restobar/utils"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongPassword     = errors.New("wrong password")
	ErrInactive          = errors.New("user is deactivated")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrSessionSuperseded = utils.ErrSessionSuperseded
)

const loginTimeout = 10 * time.Second

type Store interface {
	ProfileReader
	ProfileByLogin(ctx context.Context, identifier string) (model.Profile, error)
	SetSessionID(ctx context.Context, id uuid.UUID, sessionID *string) error
}

type Feed interface {
	Subscribe(f realtime.Filter) *realtime.Subscription
}

type Session struct {
	Profile      model.Profile `json:"profile"`
	SessionID    string        `json:"session_id"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
}

// MeResult is what a terminal gets while booting. Loading is always false:
// when the profile is not resolved within the failsafe window the caller
// receives whatever is cached, possibly nothing.
type MeResult struct {
	Profile *model.Profile `json:"profile"`
	Loading bool           `json:"loading"`
}

type watcher struct {
	userID    uuid.UUID
	sessionID string
	done      chan struct{}
}

type Service struct {
	store    Store
	tokens   *utils.Tokens
	resolver *Resolver
	failsafe time.Duration
	login    time.Duration
	log      *logger.Logger

	mu        sync.Mutex
	watchers  map[uint64]*watcher
	nextWatch uint64
	onSignOut []func(uuid.UUID)
}

func NewService(store Store, tokens *utils.Tokens, profileTimeout, failsafe time.Duration, log *logger.Logger) *Service {
	if failsafe <= 0 {
		failsafe = 3 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		resolver: NewResolver(store, profileTimeout),
		failsafe: failsafe,
		login:    loginTimeout,
		log:      log,
		watchers: make(map[uint64]*watcher),
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// NormalizeIdentifier lower-cases e-mail addresses and upper-cases document
// ids.
func NormalizeIdentifier(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		return strings.ToLower(id)
	}
	return strings.ToUpper(id)
}

// Login checks the credentials and opens a new session, which supersedes
// any session the user had on another device.
func (s *Service) Login(ctx context.Context, identifier, password string) (Session, error) {
	b := utils.Bounded[model.Profile]{Timeout: s.login, Policy: utils.ReturnError}
	p, err := b.Do(ctx, func(ctx context.Context) (model.Profile, error) {
		p, err := s.store.ProfileByLogin(ctx, NormalizeIdentifier(identifier))
		if errors.Is(err, gateway.ErrNotFound) {
			return p, ErrUserNotFound
		}
		if err != nil {
			return p, err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
			return p, ErrWrongPassword
		}
		if !p.Active {
			return p, ErrInactive
		}
		return p, nil
	})
	if err != nil {
		return Session{}, err
	}

	// The session write is awaited, never abandoned: a login that reports
	// failure must not have replaced the stored session.
	writeCtx, cancel := context.WithTimeout(ctx, s.login)
	defer cancel()
	sid := uuid.NewString()
	if err := s.store.SetSessionID(writeCtx, p.ID, &sid); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Session{}, utils.ErrTimeout
		}
		return Session{}, err
	}
	p.CurrentSessionID = &sid
	s.resolver.Put(p)
	s.checkWatchers(p)

	access, refresh, err := s.tokens.GenerateTokens(string(p.Role), p.ID, sid)
	if err != nil {
		return Session{}, err
	}
	return Session{Profile: p, SessionID: sid, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout ends the session if it is still the current one.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, sessionID string) error {
	p, err := s.resolver.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if p.CurrentSessionID != nil && *p.CurrentSessionID == sessionID {
		if err := s.store.SetSessionID(ctx, userID, nil); err != nil {
			return err
		}
		p.CurrentSessionID = nil
		s.resolver.Put(p)
	}
	s.checkWatchers(p)
	s.notifySignOut(userID)
	return nil
}

// Refresh rotates a refresh token whose session is still current.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, access, refresh, err := s.tokens.RefreshTokens(refreshToken)
	if err != nil {
		return Session{}, err
	}
	if err := s.VerifySession(ctx, claims.UserID, claims.SessionID); err != nil {
		return Session{}, err
	}
	p, _ := s.resolver.Cached(claims.UserID)
	return Session{Profile: p, SessionID: claims.SessionID, AccessToken: access, RefreshToken: refresh}, nil
}

// VerifySession reports whether sessionID is the session stored on the
// profile. It satisfies utils.SessionChecker.
func (s *Service) VerifySession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	p, err := s.resolver.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !p.Active {
		return ErrInactive
	}
	if p.CurrentSessionID == nil || *p.CurrentSessionID != sessionID {
		return ErrSessionSuperseded
	}
	return nil
}

// Me resolves the caller's profile without letting the response wait longer
// than the failsafe.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (MeResult, error) {
	b := utils.Bounded[model.Profile]{
		Timeout:  s.failsafe,
		Policy:   utils.ReturnStale,
		Fallback: func() (model.Profile, bool) { return s.resolver.Cached(userID) },
		Terminal: func(err error) bool { return errors.Is(err, ErrProfileNotFound) },
	}
	p, err := b.Do(ctx, func(ctx context.Context) (model.Profile, error) {
		return s.resolver.Profile(ctx, userID)
	})
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return MeResult{}, err
	case err != nil:
		s.log.Warn("", "auth_me", "profile not resolved within failsafe: "+err.Error())
		return MeResult{Loading: false}, nil
	}
	return MeResult{Profile: &p, Loading: false}, nil
}

// OnSignOut registers fn to run after a user logs out.
func (s *Service) OnSignOut(fn func(userID uuid.UUID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fn)
}

func (s *Service) notifySignOut(userID uuid.UUID) {
	s.mu.Lock()
	fns := append([]func(uuid.UUID){}, s.onSignOut...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(userID)
	}
}

// WatchSession returns a channel that is closed once sessionID stops being
// the user's current session. The returned func releases the watch.
func (s *Service) WatchSession(userID uuid.UUID, sessionID string) (<-chan struct{}, func()) {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	w := &watcher{userID: userID, sessionID: sessionID, done: make(chan struct{})}
	s.watchers[id] = w
	s.mu.Unlock()

	return w.done, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Service) checkWatchers(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.watchers {
		if w.userID != p.ID {
			continue
		}
		if p.Active && p.CurrentSessionID != nil && *p.CurrentSessionID == w.sessionID {
			continue
		}
		close(w.done)
		delete(s.watchers, id)
	}
}

func (s *Service) dropWatchers(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.watchers {
		if w.userID == userID {
			close(w.done)
			delete(s.watchers, id)
		}
	}
}

// Watch follows profile changes on the feed until ctx ends: the cache is
// refreshed and sessions that were superseded are signed out.
func (s *Service) Watch(ctx context.Context, feed Feed) {
	sub := feed.Subscribe(realtime.Filter{Table: model.Profile{}.TableName()})
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			id, err := uuid.Parse(e.ID)
			if err != nil {
				continue
			}
			if e.Op == realtime.OpDelete {
				s.resolver.Forget(id)
				s.dropWatchers(id)
				continue
			}
			p, err := s.resolver.Profile(ctx, id)
			if errors.Is(err, ErrProfileNotFound) {
				s.dropWatchers(id)
				continue
			}
			if err != nil {
				s.log.Error("", "auth_watch", "profile refresh failed", err)
				continue
			}
			s.checkWatchers(p)
		}
	}
}
