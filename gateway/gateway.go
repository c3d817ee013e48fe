// Package gateway is the single handle the rest of the service uses to reach
// the relational store, the change feed and product image storage.
package gateway

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restobar/media"
	"restobar/realtime"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("record already exists")
	ErrTableBusy          = errors.New("table is not free")
	ErrNoActiveOrder      = errors.New("table has no active order")
	ErrOrderClosed        = errors.New("order is already paid or cancelled")
	ErrProductUnavailable = errors.New("product is not available")
	ErrOutOfStock         = errors.New("not enough stock")
	ErrTotalChanged       = errors.New("order total changed, tendered amount no longer covers it")
	ErrCashSessionOpen    = errors.New("cash session already open")
	ErrNoCashSession      = errors.New("no open cash session")
	ErrShiftActive        = errors.New("work session already active")
	ErrNoActiveShift      = errors.New("no active work session")
	ErrStatusConflict     = errors.New("line status changed")
	ErrProfileInUse       = errors.New("profile owns cash sessions")
)

type Gateway struct {
	db    *gorm.DB
	hub   *realtime.Hub
	store media.Storage
	now   func() time.Time
}

func New(db *gorm.DB, hub *realtime.Hub, store media.Storage) *Gateway {
	return &Gateway{db: db, hub: hub, store: store, now: time.Now}
}

// Subscribe opens a change-feed subscription. Callers must Close it.
func (g *Gateway) Subscribe(f realtime.Filter) *realtime.Subscription {
	return g.hub.Subscribe(f)
}

// transaction runs fn in one database transaction. Change events produced by
// fn are published only once the commit succeeds.
func (g *Gateway) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	txCtx, box := realtime.WithOutbox(ctx)
	if err := g.db.WithContext(txCtx).Transaction(fn); err != nil {
		box.Discard()
		return translate(err)
	}
	if g.hub != nil {
		box.Flush(g.hub)
	}
	return nil
}

func (g *Gateway) conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// dayBounds returns the start of t's calendar day and of the next one.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
