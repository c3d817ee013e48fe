// Package order builds draft carts and turns them into persisted orders.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
)

var (
	ErrCashierCannotOrder = errors.New("cashiers cannot take orders")
	ErrNoOpenCashRegister = errors.New("no cash register is open, orders cannot be processed")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = gateway.ErrProductUnavailable
	ErrOutOfStock         = gateway.ErrOutOfStock
	ErrNoActiveOrder      = gateway.ErrNoActiveOrder
	ErrOrderClosed        = gateway.ErrOrderClosed
)

const historyLimit = 50

type Store interface {
	OpenCashSessionCount(ctx context.Context) (int64, error)
	PlaceLines(ctx context.Context, req gateway.PlaceRequest) (gateway.PlaceResult, error)
	RequestBill(ctx context.Context, number int) (model.Table, error)
	CancelOrder(ctx context.Context, orderID uint, by uuid.UUID, reason string) (model.Order, error)
	OrdersByWaiter(ctx context.Context, waiterID uuid.UUID, limit int) ([]model.Order, error)
	ActiveOrders(ctx context.Context) ([]model.Order, error)
	ProductByID(ctx context.Context, id uint) (model.Product, error)
}

type Service struct {
	store  Store
	drafts *Registry
	log    *logger.Logger
}

func NewService(store Store, drafts *Registry, log *logger.Logger) *Service {
	if drafts == nil {
		drafts = NewRegistry()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, drafts: drafts, log: log}
}

func (s *Service) Drafts() *Registry {
	return s.drafts
}

// CheckCanOrder enforces the preconditions for opening the order screen:
// cashiers never take orders and at least one till must be open.
func (s *Service) CheckCanOrder(ctx context.Context, role model.UserRole) error {
	if role == model.RoleCashier {
		return ErrCashierCannotOrder
	}
	n, err := s.store.OpenCashSessionCount(ctx)
	if err != nil {
		return fmt.Errorf("count open cash sessions: %w", err)
	}
	if n == 0 {
		return ErrNoOpenCashRegister
	}
	return nil
}

// Submit sends the cart to the table. The first batch for a free table opens
// the order and occupies the table; later batches are appended.
func (s *Service) Submit(ctx context.Context, table int, waiterID uuid.UUID, role model.UserRole, cart *Cart) (gateway.PlaceResult, error) {
	if err := s.CheckCanOrder(ctx, role); err != nil {
		return gateway.PlaceResult{}, err
	}
	if cart == nil || cart.Empty() {
		return gateway.PlaceResult{}, ErrEmptyCart
	}

	req := gateway.PlaceRequest{TableNumber: table, WaiterID: waiterID}
	for _, l := range cart.Lines {
		req.Lines = append(req.Lines, gateway.LineInput{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Note:      l.Note,
		})
	}
	res, err := s.store.PlaceLines(ctx, req)
	if err != nil {
		return res, err
	}
	action := "order_appended"
	if res.Created {
		action = "order_opened"
	}
	s.log.Info("", action, fmt.Sprintf("table %d order #%d: %d lines, total %s",
		table, res.Order.DailyNumber, len(res.Items), res.Order.Total.StringFixed(2)))
	return res, nil
}

// SubmitDraft submits the caller's draft for the table and clears it.
func (s *Service) SubmitDraft(ctx context.Context, table int, waiterID uuid.UUID, role model.UserRole) (gateway.PlaceResult, error) {
	res, err := s.Submit(ctx, table, waiterID, role, s.drafts.Get(waiterID, table))
	if err != nil {
		return res, err
	}
	s.drafts.Clear(waiterID, table)
	return res, nil
}

func (s *Service) Draft(user uuid.UUID, table int) *Cart {
	return s.drafts.Get(user, table)
}

func (s *Service) AddToDraft(ctx context.Context, user uuid.UUID, table int, productID uint) (*Cart, error) {
	p, err := s.store.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Available {
		return nil, ErrProductUnavailable
	}
	return s.drafts.Update(user, table, func(c *Cart) error {
		c.AddProduct(p)
		return nil
	})
}

func (s *Service) SetDraftNote(user uuid.UUID, table int, lineID, note string) (*Cart, error) {
	return s.drafts.Update(user, table, func(c *Cart) error {
		_, err := c.SetNote(lineID, note)
		return err
	})
}

func (s *Service) UpdateDraftQuantity(user uuid.UUID, table int, lineID string, delta int) (*Cart, error) {
	return s.drafts.Update(user, table, func(c *Cart) error {
		return c.UpdateQuantity(lineID, delta)
	})
}

func (s *Service) RemoveFromDraft(user uuid.UUID, table int, lineID string) (*Cart, error) {
	return s.drafts.Update(user, table, func(c *Cart) error {
		return c.Remove(lineID)
	})
}

func (s *Service) ClearDraft(user uuid.UUID, table int) {
	s.drafts.Clear(user, table)
}

// RequestBill signals the cashier that the table wants to pay.
func (s *Service) RequestBill(ctx context.Context, table int) (model.Table, error) {
	return s.store.RequestBill(ctx, table)
}

func (s *Service) Cancel(ctx context.Context, orderID uint, by uuid.UUID, reason string) (model.Order, error) {
	o, err := s.store.CancelOrder(ctx, orderID, by, reason)
	if err != nil {
		return o, err
	}
	s.log.Info("", "order_cancelled", fmt.Sprintf("order %d on table %d cancelled by %s", o.ID, o.TableNumber, by))
	return o, nil
}

// WaiterOrders returns the waiter's latest orders with their lines.
func (s *Service) WaiterOrders(ctx context.Context, waiterID uuid.UUID) ([]model.Order, error) {
	return s.store.OrdersByWaiter(ctx, waiterID, historyLimit)
}

func (s *Service) ActiveOrders(ctx context.Context) ([]model.Order, error) {
	return s.store.ActiveOrders(ctx)
}
