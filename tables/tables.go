// Package tables serves the floor plan and decides where a tap on a table
// leads each role.
package tables

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restobar/gateway"
	"restobar/logger"
	"restobar/model"
)

var (
	ErrInvalidTable       = errors.New("invalid table")
	ErrTableBusy          = gateway.ErrTableBusy
	ErrDuplicate          = gateway.ErrDuplicate
	ErrCashierCannotOrder = errors.New("cashiers cannot open tables or take orders")
	ErrNoOpenCashRegister = errors.New("no cash register is open, orders cannot be taken")
)

type Store interface {
	ListTables(ctx context.Context) ([]model.Table, error)
	TableByNumber(ctx context.Context, number int) (model.Table, error)
	CreateTable(ctx context.Context, t *model.Table) error
	UpdateTableCapacity(ctx context.Context, number, capacity int) (model.Table, error)
	DeleteTable(ctx context.Context, number int) error
	ActiveOrders(ctx context.Context) ([]model.Order, error)
	ProfileNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	OpenCashSessionCount(ctx context.Context) (int64, error)
}

// View is a table as shown on the floor plan.
type View struct {
	model.Table
	WaiterID    *uuid.UUID       `json:"waiter_id,omitempty"`
	WaiterName  string           `json:"waiter_name,omitempty"`
	DailyNumber int              `json:"daily_number,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	OpenLines   int              `json:"open_lines"`
}

type Floor struct {
	Tables        []View `json:"tables"`
	Free          int    `json:"free"`
	Occupied      int    `json:"occupied"`
	BillRequested int    `json:"bill_requested"`
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

// Floor lists every table with the waiter and running total of its order.
func (s *Service) Floor(ctx context.Context) (Floor, error) {
	list, err := s.store.ListTables(ctx)
	if err != nil {
		return Floor{}, err
	}
	orders, err := s.store.ActiveOrders(ctx)
	if err != nil {
		return Floor{}, err
	}
	byID := make(map[uint]model.Order, len(orders))
	var waiterIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, o := range orders {
		byID[o.ID] = o
		if o.WaiterID != nil && !seen[*o.WaiterID] {
			seen[*o.WaiterID] = true
			waiterIDs = append(waiterIDs, *o.WaiterID)
		}
	}
	names := map[uuid.UUID]string{}
	if len(waiterIDs) > 0 {
		if names, err = s.store.ProfileNames(ctx, waiterIDs); err != nil {
			return Floor{}, err
		}
	}

	f := Floor{Tables: make([]View, 0, len(list))}
	for _, t := range list {
		v := View{Table: t}
		switch t.Status {
		case model.TableFree:
			f.Free++
		case model.TableOccupied:
			f.Occupied++
		case model.TableBillRequested:
			f.BillRequested++
		}
		if t.CurrentOrderID != nil {
			if o, ok := byID[*t.CurrentOrderID]; ok {
				total := o.Total
				v.Total = &total
				v.DailyNumber = o.DailyNumber
				v.WaiterID = o.WaiterID
				if o.WaiterID != nil {
					v.WaiterName = names[*o.WaiterID]
				}
				for _, it := range o.Items {
					if it.Status.InProduction() {
						v.OpenLines++
					}
				}
			}
		}
		f.Tables = append(f.Tables, v)
	}
	return f, nil
}

type Destination string

const (
	DestOrder   Destination = "order"
	DestPayment Destination = "payment"
)

// Route decides where a tap on the table takes the user. Cashiers and admins
// go to payment for tables in use; everyone else goes to order entry, which
// needs an open register somewhere when the table is still free.
func (s *Service) Route(ctx context.Context, role model.UserRole, number int) (Destination, model.Table, error) {
	t, err := s.store.TableByNumber(ctx, number)
	if err != nil {
		return "", t, err
	}
	free := t.Status == model.TableFree
	if role == model.RoleCashier && free {
		return "", t, ErrCashierCannotOrder
	}
	if (role == model.RoleCashier || role == model.RoleAdmin) && !free {
		return DestPayment, t, nil
	}
	if free {
		n, err := s.store.OpenCashSessionCount(ctx)
		if err != nil {
			return "", t, err
		}
		if n == 0 {
			return "", t, ErrNoOpenCashRegister
		}
	}
	return DestOrder, t, nil
}

func (s *Service) Create(ctx context.Context, number, capacity int) (model.Table, error) {
	if number <= 0 {
		return model.Table{}, fmt.Errorf("%w: number must be positive", ErrInvalidTable)
	}
	if capacity <= 0 {
		capacity = 4
	}
	t := model.Table{Number: number, Capacity: capacity}
	if err := s.store.CreateTable(ctx, &t); err != nil {
		return t, err
	}
	s.log.Info("", "table_created", fmt.Sprintf("table %d created", number))
	return t, nil
}

func (s *Service) SetCapacity(ctx context.Context, number, capacity int) (model.Table, error) {
	if capacity <= 0 {
		return model.Table{}, fmt.Errorf("%w: capacity must be positive", ErrInvalidTable)
	}
	return s.store.UpdateTableCapacity(ctx, number, capacity)
}

// Delete removes a free table.
func (s *Service) Delete(ctx context.Context, number int) error {
	if err := s.store.DeleteTable(ctx, number); err != nil {
		return err
	}
	s.log.Info("", "table_deleted", fmt.Sprintf("table %d deleted", number))
	return nil
}
