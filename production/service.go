// Package production runs the kitchen and bar queues.
package production

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
	"restobar/realtime"
)

var (
	ErrNotPermitted      = errors.New("your role cannot act on this line")
	ErrInvalidTransition = errors.New("line is not in a state that allows this action")
	ErrNotFound          = gateway.ErrNotFound
)

const (
	historyLimit   = 50
	resyncInterval = time.Minute
)

type Store interface {
	PendingItems(ctx context.Context) ([]model.OrderItem, error)
	ItemByID(ctx context.Context, id uint) (model.OrderItem, error)
	ReadyItems(ctx context.Context, area model.ProductionArea, limit int) ([]model.OrderItem, error)
	SetItemStatus(ctx context.Context, id uint, from []model.ItemStatus, to model.ItemStatus) (model.OrderItem, error)
	ProfileNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type Feed interface {
	Subscribe(f realtime.Filter) *realtime.Subscription
}

type NoticeKind string

const (
	// NoticeRefresh means the queue changed and should be redrawn.
	NoticeRefresh NoticeKind = "refresh"
	// NoticeNewItem asks the screen to play the arrival sound and vibrate.
	NoticeNewItem NoticeKind = "new_item"
	// NoticeItemReady tells floor staff a line can be served.
	NoticeItemReady NoticeKind = "item_ready"
)

type Notice struct {
	Kind        NoticeKind           `json:"kind"`
	Area        model.ProductionArea `json:"area,omitempty"`
	ItemID      uint                 `json:"item_id,omitempty"`
	OrderID     uint                 `json:"order_id,omitempty"`
	TableNumber int                  `json:"table_number,omitempty"`
	Product     string               `json:"product,omitempty"`
}

// Listener receives notices for one screen.
type Listener struct {
	C <-chan Notice

	ch   chan Notice
	area model.ProductionArea
	role model.UserRole
	id   uint64
	svc  *Service
	once sync.Once
}

func (l *Listener) Close() {
	l.once.Do(func() { l.svc.removeListener(l.id) })
}

// wants applies the per-screen notification rules: arrival alerts only for
// lines of the screen's own area, ready alerts only for floor staff.
func (l *Listener) wants(n Notice) bool {
	switch n.Kind {
	case NoticeNewItem:
		return l.area == "" || n.Area == l.area
	case NoticeItemReady:
		return l.role == model.RoleWaiter || l.role == model.RoleCashier || l.role == model.RoleAdmin
	default:
		return l.area == "" || n.Area == "" || n.Area == l.area
	}
}

type Service struct {
	store  Store
	board  *Board
	log    *logger.Logger
	now    func() time.Time
	resync time.Duration

	mu        sync.RWMutex
	names     map[uuid.UUID]string
	listeners map[uint64]*Listener
	nextID    uint64
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:     store,
		board:     NewBoard(),
		log:       log,
		now:       time.Now,
		resync:    resyncInterval,
		names:     make(map[uuid.UUID]string),
		listeners: make(map[uint64]*Listener),
	}
}

func (s *Service) Board() *Board {
	return s.board
}

// Warm loads the current queue from the store.
func (s *Service) Warm(ctx context.Context) error {
	items, err := s.store.PendingItems(ctx)
	if err != nil {
		return fmt.Errorf("load pending items: %w", err)
	}
	s.board.Warm(items)
	return nil
}

// Run applies change events to the board until ctx ends. The board is
// reloaded from the store when the feed reports missed events and on every
// resync tick.
func (s *Service) Run(ctx context.Context, feed Feed) {
	watched := map[string]bool{
		model.OrderItem{}.TableName(): true,
		model.Order{}.TableName():     true,
		model.Product{}.TableName():   true,
	}
	sub := feed.Subscribe(realtime.Filter{Match: func(e realtime.ChangeEvent) bool { return watched[e.Table] }})
	defer sub.Close()

	ticker := time.NewTicker(s.resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Lag:
			s.log.Warn("", "production_resync", "change feed dropped events, reloading queue")
			discard(sub)
			s.reload(ctx)
		case <-ticker.C:
			s.reload(ctx)
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if err := s.Apply(ctx, e); err != nil {
				s.log.Error("", "production_apply", fmt.Sprintf("%s %s %s", e.Op, e.Table, e.ID), err)
			}
		}
	}
}

// discard empties the events already queued on sub. Their rows are
// committed, so the reload that follows sees them.
func discard(sub *realtime.Subscription) {
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Service) reload(ctx context.Context) {
	if err := s.Warm(ctx); err != nil {
		s.log.Error("", "production_resync", "reload queue", err)
		return
	}
	s.broadcast(Notice{Kind: NoticeRefresh})
}

// Apply folds one change event into the board and notifies listeners.
func (s *Service) Apply(ctx context.Context, e realtime.ChangeEvent) error {
	if e.ID == "" {
		if err := s.Warm(ctx); err != nil {
			return err
		}
		s.broadcast(Notice{Kind: NoticeRefresh})
		return nil
	}

	switch e.Table {
	case model.OrderItem{}.TableName():
		return s.applyItem(ctx, e)
	case model.Order{}.TableName():
		var o model.Order
		if err := e.Decode(&o); err != nil {
			return s.reloadOnMissing(ctx, err)
		}
		if o.WaiterID != nil {
			s.forgetName(*o.WaiterID)
		}
		s.board.UpdateOrder(o)
		s.broadcast(Notice{Kind: NoticeRefresh})
	case model.Product{}.TableName():
		var p model.Product
		if err := e.Decode(&p); err != nil {
			return s.reloadOnMissing(ctx, err)
		}
		s.board.UpdateProduct(p)
		s.broadcast(Notice{Kind: NoticeRefresh, Area: p.Area})
	}
	return nil
}

func (s *Service) reloadOnMissing(ctx context.Context, err error) error {
	if !errors.Is(err, realtime.ErrNoRecord) {
		return err
	}
	if err := s.Warm(ctx); err != nil {
		return err
	}
	s.broadcast(Notice{Kind: NoticeRefresh})
	return nil
}

func (s *Service) applyItem(ctx context.Context, e realtime.ChangeEvent) error {
	id, ok := e.UintID()
	if !ok {
		return fmt.Errorf("order item event with id %q", e.ID)
	}
	if e.Op == realtime.OpDelete {
		before, _ := s.board.Item(id)
		s.board.Remove(id)
		s.broadcast(Notice{Kind: NoticeRefresh, Area: before.Area()})
		return nil
	}

	before, _ := s.board.Item(id)
	var it model.OrderItem
	if err := e.Decode(&it); err != nil || !s.board.Complete(it) {
		fresh, ferr := s.store.ItemByID(ctx, id)
		if errors.Is(ferr, gateway.ErrNotFound) {
			s.board.Remove(id)
			s.broadcast(Notice{Kind: NoticeRefresh})
			return nil
		}
		if ferr != nil {
			return ferr
		}
		it = fresh
	}

	s.board.Upsert(it)
	full, onBoard := s.board.Item(id)
	if !onBoard {
		full = it
	}
	area := full.Area()
	if area == "" {
		area = before.Area()
	}
	s.broadcast(Notice{Kind: NoticeRefresh, Area: area})

	switch {
	case e.Op == realtime.OpInsert && onBoard:
		s.broadcast(s.notice(NoticeNewItem, full))
	case e.Op == realtime.OpUpdate && it.Status == model.ItemReady:
		if full.Order == nil || full.Product == nil {
			if fresh, err := s.store.ItemByID(ctx, id); err == nil {
				full = fresh
			}
		}
		s.broadcast(s.notice(NoticeItemReady, full))
	}
	return nil
}

func (s *Service) notice(kind NoticeKind, it model.OrderItem) Notice {
	n := Notice{Kind: kind, Area: it.Area(), ItemID: it.ID, OrderID: it.OrderID}
	if it.Order != nil {
		n.TableNumber = it.Order.TableNumber
	}
	if it.Product != nil {
		n.Product = it.Product.Name
	}
	return n
}

// Listen registers a screen for notices. area is the screen's production
// area, empty for the combined view.
func (s *Service) Listen(area model.ProductionArea, role model.UserRole) *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ch := make(chan Notice, 32)
	l := &Listener{C: ch, ch: ch, area: area, role: role, id: s.nextID, svc: s}
	s.listeners[l.id] = l
	return l
}

func (s *Service) removeListener(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.listeners[id]; ok {
		delete(s.listeners, id)
		close(l.ch)
	}
}

func (s *Service) broadcast(n Notice) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		if !l.wants(n) {
			continue
		}
		select {
		case l.ch <- n:
		default:
		}
	}
}

// Pending returns the grouped queue for an area, with waiter names filled
// in.
func (s *Service) Pending(ctx context.Context, area model.ProductionArea) ([]Group, error) {
	groups := GroupPending(s.board.Snapshot(), area, s.now())

	var missing []uuid.UUID
	s.mu.RLock()
	for _, g := range groups {
		if g.WaiterID == nil {
			continue
		}
		if _, ok := s.names[*g.WaiterID]; !ok {
			missing = append(missing, *g.WaiterID)
		}
	}
	s.mu.RUnlock()

	if len(missing) > 0 {
		names, err := s.store.ProfileNames(ctx, missing)
		if err != nil {
			s.log.Warn("", "production_names", "waiter names unavailable: "+err.Error())
		} else {
			s.mu.Lock()
			for id, name := range names {
				s.names[id] = name
			}
			s.mu.Unlock()
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range groups {
		groups[i].WaiterName = "Unassigned"
		if groups[i].WaiterID == nil {
			continue
		}
		if name, ok := s.names[*groups[i].WaiterID]; ok {
			groups[i].WaiterName = model.Profile{FullName: name}.FirstName()
		}
	}
	return groups, nil
}

func (s *Service) forgetName(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, id)
}

// History lists the latest ready lines, newest first.
func (s *Service) History(ctx context.Context, area model.ProductionArea) ([]model.OrderItem, error) {
	return s.store.ReadyItems(ctx, area, historyLimit)
}

func (s *Service) transition(ctx context.Context, role model.UserRole, id uint, from []model.ItemStatus, to model.ItemStatus) (model.OrderItem, error) {
	it, ok := s.board.Item(id)
	if !ok || it.Product == nil {
		var err error
		it, err = s.store.ItemByID(ctx, id)
		if err != nil {
			return it, err
		}
	}
	if !CanAct(role, it.Area()) {
		return it, ErrNotPermitted
	}
	updated, err := s.store.SetItemStatus(ctx, id, from, to)
	if errors.Is(err, gateway.ErrStatusConflict) {
		return updated, ErrInvalidTransition
	}
	if err != nil {
		return updated, err
	}
	s.board.Upsert(updated)
	return updated, nil
}

// MarkReady finishes a pending or preparing line.
func (s *Service) MarkReady(ctx context.Context, role model.UserRole, id uint) (model.OrderItem, error) {
	return s.transition(ctx, role, id, []model.ItemStatus{model.ItemPending, model.ItemPreparing}, model.ItemReady)
}

func (s *Service) StartPreparing(ctx context.Context, role model.UserRole, id uint) (model.OrderItem, error) {
	return s.transition(ctx, role, id, []model.ItemStatus{model.ItemPending}, model.ItemPreparing)
}

// Undo sends a ready line back to the queue.
func (s *Service) Undo(ctx context.Context, role model.UserRole, id uint) (model.OrderItem, error) {
	return s.transition(ctx, role, id, []model.ItemStatus{model.ItemReady}, model.ItemPending)
}
