package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"restobar/model"
)

func (g *Gateway) OpenCashSessionFor(ctx context.Context, cashierID uuid.UUID) (model.CashSession, error) {
	var s model.CashSession
	err := g.conn(ctx).Where("cashier_id = ? AND status = ?", cashierID, model.CashOpen).
		Order("opened_at DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s, ErrNoCashSession
	}
	return s, translate(err)
}

// OpenCashSession starts a till period. A cashier has at most one open
// session.
func (g *Gateway) OpenCashSession(ctx context.Context, cashierID uuid.UUID, opening decimal.Decimal) (model.CashSession, error) {
	var s model.CashSession
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		var cashier model.Profile
		if err := forUpdate(tx).First(&cashier, "id = ?", cashierID).Error; err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&model.CashSession{}).
			Where("cashier_id = ? AND status = ?", cashierID, model.CashOpen).Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrCashSessionOpen
		}
		s = model.CashSession{
			CashierID:     cashierID,
			OpeningAmount: opening,
			Status:        model.CashOpen,
			OpenedAt:      g.now(),
		}
		return tx.Create(&s).Error
	})
	return s, err
}

// CloseCashSession closes the cashier's open session. The system amount is
// the opening float plus cash payments the cashier took since opening.
func (g *Gateway) CloseCashSession(ctx context.Context, cashierID uuid.UUID, declared decimal.Decimal, notes string) (model.CashSession, error) {
	var s model.CashSession
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		err := forUpdate(tx).Where("cashier_id = ? AND status = ?", cashierID, model.CashOpen).
			Order("opened_at DESC").First(&s).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoCashSession
		}
		if err != nil {
			return err
		}
		sales, err := cashSalesSince(tx, cashierID, s.OpenedAt)
		if err != nil {
			return err
		}
		system := s.OpeningAmount.Add(sales)
		closed := g.now()
		s.ClosingAmount = &declared
		s.SystemAmount = &system
		s.ClosedAt = &closed
		s.Status = model.CashClosed
		s.Notes = notes
		return tx.Save(&s).Error
	})
	return s, err
}

type CashSessionQuery struct {
	CashierID *uuid.UUID
	Status    model.CashSessionStatus
	From, To  time.Time
	Limit     int
}

func (g *Gateway) ListCashSessions(ctx context.Context, q CashSessionQuery) ([]model.CashSession, error) {
	var sessions []model.CashSession
	db := g.conn(ctx).Preload("Cashier").Order("opened_at DESC")
	if q.CashierID != nil {
		db = db.Where("cashier_id = ?", *q.CashierID)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if !q.From.IsZero() {
		db = db.Where("opened_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("opened_at < ?", q.To)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	err := db.Find(&sessions).Error
	return sessions, translate(err)
}
