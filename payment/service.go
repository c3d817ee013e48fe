// Package payment settles table bills and keeps the cash register accounts.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
)

var (
	ErrCashRegisterClosed = errors.New("cash register is closed")
	ErrCashSessionOpen    = gateway.ErrCashSessionOpen
	ErrNegativeAmount     = errors.New("amount cannot be negative")
	ErrNoActiveOrder      = gateway.ErrNoActiveOrder
	ErrTotalChanged       = gateway.ErrTotalChanged
)

type Store interface {
	OpenCashSessionFor(ctx context.Context, cashierID uuid.UUID) (model.CashSession, error)
	OpenCashSessionCount(ctx context.Context) (int64, error)
	OpenCashSession(ctx context.Context, cashierID uuid.UUID, opening decimal.Decimal) (model.CashSession, error)
	CloseCashSession(ctx context.Context, cashierID uuid.UUID, declared decimal.Decimal, notes string) (model.CashSession, error)
	ListCashSessions(ctx context.Context, q gateway.CashSessionQuery) ([]model.CashSession, error)
	CashSalesSince(ctx context.Context, cashierID uuid.UUID, since time.Time) (decimal.Decimal, error)
	OrderForTable(ctx context.Context, number int) (model.Table, model.Order, error)
	SettleOrder(ctx context.Context, req gateway.SettleRequest) (model.Order, error)
}

type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log}
}

// RequireOpenSession returns the cashier's open till or
// ErrCashRegisterClosed.
func (s *Service) RequireOpenSession(ctx context.Context, cashierID uuid.UUID) (model.CashSession, error) {
	cs, err := s.store.OpenCashSessionFor(ctx, cashierID)
	if errors.Is(err, gateway.ErrNoCashSession) {
		return cs, ErrCashRegisterClosed
	}
	return cs, err
}

func (s *Service) Summary(ctx context.Context, cashierID uuid.UUID, table int) (Summary, error) {
	if _, err := s.RequireOpenSession(ctx, cashierID); err != nil {
		return Summary{}, err
	}
	_, o, err := s.store.OrderForTable(ctx, table)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(o), nil
}

type Receipt struct {
	Order  model.Order `json:"order"`
	Tender Tender      `json:"tender"`
}

// Confirm takes the payment for the table's order. The order is marked paid
// and the table freed in one transaction.
func (s *Service) Confirm(ctx context.Context, cashierID uuid.UUID, table int, method model.PaymentMethod, tendered *decimal.Decimal) (Receipt, error) {
	if _, err := s.RequireOpenSession(ctx, cashierID); err != nil {
		return Receipt{}, err
	}
	_, o, err := s.store.OrderForTable(ctx, table)
	if err != nil {
		return Receipt{}, err
	}
	sum := Summarize(o)
	if _, err := ValidateTender(method, tendered, sum.Total); err != nil {
		return Receipt{}, err
	}

	paid, err := s.store.SettleOrder(ctx, gateway.SettleRequest{
		TableNumber: table,
		Method:      method,
		CashierID:   cashierID,
		Tendered:    tendered,
	})
	if err != nil {
		return Receipt{}, err
	}
	tender, err := ValidateTender(method, tendered, paid.Total)
	if err != nil {
		return Receipt{}, err
	}
	if sum.EarlySettlement {
		s.log.Warn("", "payment_early", fmt.Sprintf("table %d paid with %d lines still in production", table, sum.PendingCount))
	}
	s.log.Info("", "payment_confirmed", fmt.Sprintf("order %d table %d paid %s by %s", paid.ID, table, paid.Total.StringFixed(2), method))
	return Receipt{Order: paid, Tender: tender}, nil
}

func (s *Service) OpenCash(ctx context.Context, cashierID uuid.UUID, opening decimal.Decimal) (model.CashSession, error) {
	if opening.IsNegative() {
		return model.CashSession{}, ErrNegativeAmount
	}
	cs, err := s.store.OpenCashSession(ctx, cashierID, opening)
	if err != nil {
		return cs, err
	}
	s.log.Info("", "cash_opened", fmt.Sprintf("cash session %d opened with %s", cs.ID, opening.StringFixed(2)))
	return cs, nil
}

// CloseCash closes the cashier's till with the declared count.
func (s *Service) CloseCash(ctx context.Context, cashierID uuid.UUID, declared decimal.Decimal, notes string) (model.CashSession, error) {
	if declared.IsNegative() {
		return model.CashSession{}, ErrNegativeAmount
	}
	cs, err := s.store.CloseCashSession(ctx, cashierID, declared, notes)
	if errors.Is(err, gateway.ErrNoCashSession) {
		return cs, ErrCashRegisterClosed
	}
	if err != nil {
		return cs, err
	}
	if v := cs.Variance(); !v.IsZero() {
		s.log.Warn("", "cash_variance", fmt.Sprintf("cash session %d closed with variance %s", cs.ID, v.StringFixed(2)))
	}
	return cs, nil
}

type CashStatus struct {
	OpenSystemWide int64              `json:"open_system_wide"`
	Session        *model.CashSession `json:"session"`
	CashSales      decimal.Decimal    `json:"cash_sales"`
	Expected       decimal.Decimal    `json:"expected"`
}

// Status reports the register state for a cashier along with the number of
// open registers across the restaurant.
func (s *Service) Status(ctx context.Context, cashierID uuid.UUID) (CashStatus, error) {
	n, err := s.store.OpenCashSessionCount(ctx)
	if err != nil {
		return CashStatus{}, err
	}
	st := CashStatus{OpenSystemWide: n, CashSales: decimal.Zero, Expected: decimal.Zero}
	cs, err := s.RequireOpenSession(ctx, cashierID)
	if errors.Is(err, ErrCashRegisterClosed) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	sales, err := s.store.CashSalesSince(ctx, cashierID, cs.OpenedAt)
	if err != nil {
		return st, err
	}
	st.Session = &cs
	st.CashSales = sales
	st.Expected = cs.OpeningAmount.Add(sales)
	return st, nil
}

func (s *Service) Sessions(ctx context.Context, q gateway.CashSessionQuery) ([]model.CashSession, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	return s.store.ListCashSessions(ctx, q)
}
