// Package shift tracks whether staff members are clocked in.
package shift

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
	"restobar/utils"
)

var (
	ErrShiftActive   = gateway.ErrShiftActive
	ErrNoActiveShift = gateway.ErrNoActiveShift
)

type Store interface {
	ActiveWorkSession(ctx context.Context, userID uuid.UUID) (model.WorkSession, error)
	StartWorkSession(ctx context.Context, userID uuid.UUID, role model.UserRole) (model.WorkSession, error)
	EndWorkSession(ctx context.Context, userID uuid.UUID) (model.WorkSession, error)
	ListWorkSessions(ctx context.Context, q gateway.WorkSessionQuery) ([]model.WorkSession, error)
}

type entry struct {
	session   *model.WorkSession
	checkedAt time.Time
}

// Service answers "is this user clocked in" from a cache and reconciles the
// cache with the store in the background. A check that times out keeps the
// cached answer.
type Service struct {
	store   Store
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time

	mu       sync.RWMutex
	cache    map[uuid.UUID]entry
	inflight map[uuid.UUID]bool
	wg       sync.WaitGroup
}

func NewService(store Store, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
		cache:    make(map[uuid.UUID]entry),
		inflight: make(map[uuid.UUID]bool),
	}
}

// Current returns the user's active work session or nil. A cached answer is
// returned at once and refreshed in the background; without one the call
// waits for the bounded check.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (*model.WorkSession, error) {
	s.mu.RLock()
	e, ok := s.cache[userID]
	s.mu.RUnlock()
	if ok {
		s.revalidate(userID)
		return e.session, nil
	}
	return s.check(ctx, userID)
}

func (s *Service) check(ctx context.Context, userID uuid.UUID) (*model.WorkSession, error) {
	b := utils.Bounded[*model.WorkSession]{
		Timeout: s.timeout,
		Policy:  utils.ReturnStale,
		Fallback: func() (*model.WorkSession, bool) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			e, ok := s.cache[userID]
			return e.session, ok
		},
	}
	return b.Do(ctx, func(ctx context.Context) (*model.WorkSession, error) {
		w, err := s.store.ActiveWorkSession(ctx, userID)
		if errors.Is(err, ErrNoActiveShift) {
			s.put(userID, nil)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		s.put(userID, &w)
		return &w, nil
	})
}

func (s *Service) revalidate(userID uuid.UUID) {
	s.mu.Lock()
	if s.inflight[userID] {
		s.mu.Unlock()
		return
	}
	s.inflight[userID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, userID)
			s.mu.Unlock()
		}()
		if _, err := s.check(context.Background(), userID); err != nil {
			s.log.Warn("", "shift_revalidate", "keeping cached shift: "+err.Error())
		}
	}()
}

// Wait blocks until background revalidations finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) put(userID uuid.UUID, w *model.WorkSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[userID] = entry{session: w, checkedAt: s.now()}
}

func (s *Service) Start(ctx context.Context, userID uuid.UUID, role model.UserRole) (model.WorkSession, error) {
	w, err := s.store.StartWorkSession(ctx, userID, role)
	if err != nil {
		return w, err
	}
	s.put(userID, &w)
	return w, nil
}

func (s *Service) End(ctx context.Context, userID uuid.UUID) (model.WorkSession, error) {
	w, err := s.store.EndWorkSession(ctx, userID)
	if errors.Is(err, ErrNoActiveShift) {
		s.put(userID, nil)
	}
	if err != nil {
		return w, err
	}
	s.put(userID, nil)
	return w, nil
}

// Forget drops the cached state, for example after logout.
func (s *Service) Forget(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, userID)
}

// Monitor lists work sessions for the admin staff monitor.
func (s *Service) Monitor(ctx context.Context, q gateway.WorkSessionQuery) ([]model.WorkSession, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	return s.store.ListWorkSessions(ctx, q)
}

// Gate blocks operational routes until the caller clocks in. Admins pass.
func (s *Service) Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if utils.CurrentRole(c) == string(model.RoleAdmin) {
			c.Next()
			return
		}
		w, err := s.Current(c.Request.Context(), utils.CurrentUserID(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "Could not verify your shift, try again",
			})
			return
		}
		if w == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Clock in to start your shift",
				"action":  "clock_in",
			})
			return
		}
		c.Next()
	}
}
