package production

import (
	"sort"
	"sync"

	"restobar/model"
)

// Board is the in-memory set of lines still in production, indexed by line
// id, with the orders and products they reference. It is fed by change
// events instead of re-reading the queue on every change.
type Board struct {
	mu       sync.RWMutex
	items    map[uint]model.OrderItem
	orders   map[uint]model.Order
	products map[uint]model.Product
}

func NewBoard() *Board {
	return &Board{
		items:    make(map[uint]model.OrderItem),
		orders:   make(map[uint]model.Order),
		products: make(map[uint]model.Product),
	}
}

// Warm replaces the board content with lines loaded from the store. Orders
// and products are rebuilt from the ones those lines reference.
func (b *Board) Warm(items []model.OrderItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = make(map[uint]model.OrderItem, len(items))
	b.orders = make(map[uint]model.Order)
	b.products = make(map[uint]model.Product)
	for _, it := range items {
		b.upsertLocked(it)
	}
}

// Upsert keeps the line when it is still in production and drops it
// otherwise. Lines of cancelled orders are never kept.
func (b *Board) Upsert(it model.OrderItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsertLocked(it)
}

func (b *Board) upsertLocked(it model.OrderItem) {
	if it.Product != nil {
		b.products[it.ProductID] = *it.Product
	}
	if it.Order != nil {
		o := *it.Order
		o.Items = nil
		b.orders[it.OrderID] = o
	}
	if o, ok := b.orders[it.OrderID]; ok && o.Status == model.OrderCancelled {
		delete(b.items, it.ID)
		b.pruneOrderLocked(it.OrderID)
		return
	}
	if !it.Status.InProduction() {
		delete(b.items, it.ID)
		b.pruneOrderLocked(it.OrderID)
		return
	}
	it.Product, it.Order = nil, nil
	b.items[it.ID] = it
}

func (b *Board) Remove(id uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[id]
	if !ok {
		return
	}
	delete(b.items, id)
	b.pruneOrderLocked(it.OrderID)
}

// pruneOrderLocked forgets a paid or cancelled order once no line on the
// board belongs to it.
func (b *Board) pruneOrderLocked(orderID uint) {
	o, ok := b.orders[orderID]
	if !ok || !o.Terminal() {
		return
	}
	for _, it := range b.items {
		if it.OrderID == orderID {
			return
		}
	}
	delete(b.orders, orderID)
}

// Complete reports whether the board already knows the order and product a
// line refers to.
func (b *Board) Complete(it model.OrderItem) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, hasOrder := b.orders[it.OrderID]
	_, hasProduct := b.products[it.ProductID]
	return hasOrder && hasProduct
}

// UpdateOrder records order changes; cancelling an order clears its lines.
// Finished orders without lines on the board are not kept.
func (b *Board) UpdateOrder(o model.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o.Items = nil
	b.orders[o.ID] = o
	if o.Status == model.OrderCancelled {
		for id, it := range b.items {
			if it.OrderID == o.ID {
				delete(b.items, id)
			}
		}
	}
	b.pruneOrderLocked(o.ID)
}

// Orders reports how many orders the board holds.
func (b *Board) Orders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

func (b *Board) UpdateProduct(p model.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[p.ID] = p
}

// Item returns a line with its order and product attached.
func (b *Board) Item(id uint) (model.OrderItem, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	it, ok := b.items[id]
	if !ok {
		return it, false
	}
	return b.attachLocked(it), true
}

func (b *Board) attachLocked(it model.OrderItem) model.OrderItem {
	if p, ok := b.products[it.ProductID]; ok {
		p := p
		it.Product = &p
	}
	if o, ok := b.orders[it.OrderID]; ok {
		o := o
		it.Order = &o
	}
	return it
}

// Snapshot returns all lines, oldest first, with order and product attached.
func (b *Board) Snapshot() []model.OrderItem {
	b.mu.RLock()
	out := make([]model.OrderItem, 0, len(b.items))
	for _, it := range b.items {
		out = append(out, b.attachLocked(it))
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
