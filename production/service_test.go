package production

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restobar/gateway"
	"restobar/model"
	"restobar/realtime"
)

type fakeStore struct {
	mu    sync.Mutex
	items map[uint]model.OrderItem
	names map[uuid.UUID]string
}

func newFakeStore(items ...model.OrderItem) *fakeStore {
	f := &fakeStore{items: make(map[uint]model.OrderItem), names: make(map[uuid.UUID]string)}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

func (f *fakeStore) PendingItems(context.Context) ([]model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OrderItem
	for _, it := range f.items {
		if it.Status.InProduction() {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) ItemByID(_ context.Context, id uint) (model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return it, gateway.ErrNotFound
	}
	return it, nil
}

func (f *fakeStore) ReadyItems(_ context.Context, area model.ProductionArea, limit int) ([]model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OrderItem
	for _, it := range f.items {
		if it.Status == model.ItemReady && (area == "" || it.Area() == area) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) SetItemStatus(_ context.Context, id uint, from []model.ItemStatus, to model.ItemStatus) (model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return it, gateway.ErrNotFound
	}
	for _, s := range from {
		if it.Status == s {
			it.Status = to
			it.UpdatedAt = time.Now()
			f.items[id] = it
			return it, nil
		}
	}
	return it, gateway.ErrStatusConflict
}

func (f *fakeStore) ProfileNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func insertEvent(t *testing.T, it model.OrderItem) realtime.ChangeEvent {
	t.Helper()
	bare := it
	bare.Product, bare.Order = nil, nil
	rec, err := json.Marshal(bare)
	require.NoError(t, err)
	return realtime.ChangeEvent{Table: "order_items", Op: realtime.OpInsert, ID: fmt.Sprint(it.ID), Record: rec}
}

func drain(l *Listener) []Notice {
	var out []Notice
	for {
		select {
		case n := <-l.C:
			out = append(out, n)
		default:
			return out
		}
	}
}

func kinds(ns []Notice) []NoticeKind {
	var out []NoticeKind
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

func TestBarCannotMarkKitchenLine(t *testing.T) {
	store := newFakeStore(line(1, 1, model.AreaKitchen, t0))
	svc := NewService(store, nil)
	require.NoError(t, svc.Warm(context.Background()))

	_, err := svc.MarkReady(context.Background(), model.RoleBar, 1)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, model.ItemPending, store.items[1].Status)

	it, err := svc.MarkReady(context.Background(), model.RoleKitchen, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ItemReady, it.Status)
	assert.Equal(t, 0, svc.Board().Len())
}

func TestMarkReadyUndoCycle(t *testing.T) {
	store := newFakeStore(line(1, 1, model.AreaBar, t0))
	svc := NewService(store, nil)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	_, err := svc.Undo(ctx, model.RoleBar, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.StartPreparing(ctx, model.RoleBar, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Board().Len(), "preparing lines stay on the board")

	_, err = svc.MarkReady(ctx, model.RoleCashier, 1)
	require.NoError(t, err)

	history, err := svc.History(ctx, model.AreaBar)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	it, err := svc.Undo(ctx, model.RoleBar, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ItemPending, it.Status)
	assert.Equal(t, 1, svc.Board().Len())
}

func TestInsertNotifiesOnlyMatchingArea(t *testing.T) {
	bar := line(7, 3, model.AreaBar, t0)
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	kitchenScreen := svc.Listen(model.AreaKitchen, model.RoleKitchen)
	defer kitchenScreen.Close()
	barScreen := svc.Listen(model.AreaBar, model.RoleBar)
	defer barScreen.Close()

	store.items[bar.ID] = bar
	require.NoError(t, svc.Apply(ctx, insertEvent(t, bar)))

	assert.NotContains(t, kinds(drain(kitchenScreen)), NoticeNewItem)
	got := drain(barScreen)
	assert.Contains(t, kinds(got), NoticeNewItem)
	for _, n := range got {
		if n.Kind == NoticeNewItem {
			assert.Equal(t, 3, n.TableNumber)
		}
	}

	groups, err := svc.Pending(ctx, model.AreaBar)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, uint(7), groups[0].Lines[0].ID)
}

func TestReadyNotifiesFloorStaff(t *testing.T) {
	it := line(2, 5, model.AreaKitchen, t0)
	store := newFakeStore(it)
	svc := NewService(store, nil)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	waiter := svc.Listen("", model.RoleWaiter)
	defer waiter.Close()
	kitchen := svc.Listen(model.AreaKitchen, model.RoleKitchen)
	defer kitchen.Close()

	ready, err := svc.MarkReady(ctx, model.RoleKitchen, 2)
	require.NoError(t, err)
	ready.Product, ready.Order = nil, nil
	rec, err := json.Marshal(ready)
	require.NoError(t, err)
	require.NoError(t, svc.Apply(ctx, realtime.ChangeEvent{Table: "order_items", Op: realtime.OpUpdate, ID: "2", Record: rec}))

	got := drain(waiter)
	require.Contains(t, kinds(got), NoticeItemReady)
	for _, n := range got {
		if n.Kind == NoticeItemReady {
			assert.Equal(t, 5, n.TableNumber)
		}
	}
	assert.NotContains(t, kinds(drain(kitchen)), NoticeItemReady)
}

func TestCancelledOrderLeavesBoard(t *testing.T) {
	store := newFakeStore(line(1, 1, model.AreaKitchen, t0), line(2, 2, model.AreaKitchen, t0))
	svc := NewService(store, nil)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	rec, err := json.Marshal(model.Order{ID: 1, TableNumber: 1, Status: model.OrderCancelled})
	require.NoError(t, err)
	require.NoError(t, svc.Apply(ctx, realtime.ChangeEvent{Table: "orders", Op: realtime.OpUpdate, ID: "1", Record: rec}))

	groups, err := svc.Pending(ctx, "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, uint(2), groups[0].OrderID)
}

func TestPendingFillsWaiterFirstName(t *testing.T) {
	waiter := uuid.New()
	it := line(1, 1, model.AreaKitchen, t0)
	it.Order.WaiterID = &waiter
	store := newFakeStore(it, line(2, 2, model.AreaKitchen, t0.Add(time.Minute)))
	store.names[waiter] = "Lucia Paz"
	svc := NewService(store, nil)
	svc.now = func() time.Time { return t0.Add(16 * time.Minute) }
	require.NoError(t, svc.Warm(context.Background()))

	groups, err := svc.Pending(context.Background(), model.AreaKitchen)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Lucia", groups[0].WaiterName)
	assert.Equal(t, UrgencyWarning, groups[0].Urgency)
	assert.Equal(t, "Unassigned", groups[1].WaiterName)
}

func TestRunAppliesFeed(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx, hub)

	it := line(9, 4, model.AreaKitchen, t0)
	store.mu.Lock()
	store.items[it.ID] = it
	store.mu.Unlock()

	ev := insertEvent(t, it)
	assert.Eventually(t, func() bool {
		hub.Publish(ev)
		return svc.Board().Len() == 1
	}, time.Second, 20*time.Millisecond)
}

// gatedStore holds ItemByID until released so the feed consumer falls behind.
type gatedStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ItemByID(ctx context.Context, id uint) (model.OrderItem, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.fakeStore.ItemByID(ctx, id)
}

func (f *fakeStore) put(it model.OrderItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[it.ID] = it
}

func TestRunReloadsAfterDroppedEvents(t *testing.T) {
	store := &gatedStore{fakeStore: newFakeStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewService(store, nil)
	hub := realtime.NewHub(realtime.WithBuffer(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	screen := svc.Listen(model.AreaKitchen, model.RoleKitchen)
	defer screen.Close()
	go svc.Run(ctx, hub)

	const lines = 40
	items := make([]model.OrderItem, 0, lines)
	for id := uint(1); id <= lines; id++ {
		it := line(id, 1, model.AreaKitchen, t0.Add(time.Duration(id)*time.Second))
		store.put(it)
		items = append(items, it)
	}

	first := insertEvent(t, items[0])
	require.Eventually(t, func() bool {
		hub.Publish(first)
		select {
		case <-store.entered:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	for _, it := range items[1:] {
		hub.Publish(insertEvent(t, it))
	}
	require.NotZero(t, hub.Dropped())
	close(store.release)

	assert.Eventually(t, func() bool { return svc.Board().Len() == lines }, 2*time.Second, 10*time.Millisecond)
	groups, err := svc.Pending(context.Background(), model.AreaKitchen)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Lines, lines)
}

func TestRunResyncsOnTick(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	svc.resync = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx, realtime.NewHub())

	store.put(line(3, 2, model.AreaBar, t0))
	assert.Eventually(t, func() bool { return svc.Board().Len() == 1 }, time.Second, 10*time.Millisecond)
}
