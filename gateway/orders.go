package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restobar/model"
)

// dailyNumberLock serializes daily order numbering across transactions.
const dailyNumberLock = 74201

type LineInput struct {
	ProductID uint
	Quantity  int
	Note      string
}

type PlaceRequest struct {
	TableNumber int
	WaiterID    uuid.UUID
	Lines       []LineInput
}

type PlaceResult struct {
	Order   model.Order
	Table   model.Table
	Items   []model.OrderItem
	Created bool
}

// OpenCashSessionCount counts open cash sessions across all cashiers.
func (g *Gateway) OpenCashSessionCount(ctx context.Context) (int64, error) {
	var n int64
	err := g.conn(ctx).Model(&model.CashSession{}).Where("status = ?", model.CashOpen).Count(&n).Error
	return n, translate(err)
}

// PlaceLines submits a batch of lines for a table. A free table gets a new
// order and becomes occupied; otherwise the lines join the linked order. The
// table row is locked for the whole transaction so that two terminals cannot
// both open an order for it.
func (g *Gateway) PlaceLines(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	var res PlaceResult
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("number = ?", req.TableNumber).First(&res.Table).Error; err != nil {
			return err
		}

		products, err := lockProducts(tx, req.Lines)
		if err != nil {
			return err
		}

		if res.Table.CurrentOrderID == nil {
			order, err := g.openOrder(tx, req)
			if err != nil {
				return err
			}
			res.Order = order
			res.Created = true
			res.Table.Occupy(order.ID)
			if err := tx.Save(&res.Table).Error; err != nil {
				return err
			}
		} else {
			if err := forUpdate(tx).First(&res.Order, *res.Table.CurrentOrderID).Error; err != nil {
				return err
			}
			if res.Order.Terminal() {
				return ErrOrderClosed
			}
		}

		res.Items = make([]model.OrderItem, 0, len(req.Lines))
		for _, line := range req.Lines {
			p := products[line.ProductID]
			res.Items = append(res.Items, model.OrderItem{
				OrderID:   res.Order.ID,
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
				Note:      line.Note,
				Status:    model.ItemPending,
			})
		}
		if err := tx.Create(&res.Items).Error; err != nil {
			return err
		}
		for i := range res.Items {
			p := products[res.Items[i].ProductID]
			res.Items[i].Product = &p
		}

		if err := decrementStock(tx, products, req.Lines); err != nil {
			return err
		}
		return recomputeTotal(tx, &res.Order)
	})
	return res, err
}

func (g *Gateway) openOrder(tx *gorm.DB, req PlaceRequest) (model.Order, error) {
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", dailyNumberLock).Error; err != nil {
		return model.Order{}, err
	}
	start, end := dayBounds(g.now())
	var today int64
	if err := tx.Model(&model.Order{}).Where("created_at >= ? AND created_at < ?", start, end).Count(&today).Error; err != nil {
		return model.Order{}, err
	}
	waiter := req.WaiterID
	order := model.Order{
		DailyNumber: int(today) + 1,
		TableNumber: req.TableNumber,
		WaiterID:    &waiter,
		Status:      model.OrderPending,
		Total:       decimal.Zero,
	}
	if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func lockProducts(tx *gorm.DB, lines []LineInput) (map[uint]model.Product, error) {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	var list []model.Product
	if err := forUpdate(tx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	products := make(map[uint]model.Product, len(list))
	for _, p := range list {
		products[p.ID] = p
	}

	need := make(map[uint]int)
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.Available {
			return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, l.ProductID)
		}
		need[p.ID] += l.Quantity
	}
	for id, qty := range need {
		p := products[id]
		if p.TrackStock && p.Stock < qty {
			return nil, fmt.Errorf("%w: %s has %d left", ErrOutOfStock, p.Name, p.Stock)
		}
	}
	return products, nil
}

func decrementStock(tx *gorm.DB, products map[uint]model.Product, lines []LineInput) error {
	need := make(map[uint]int)
	for _, l := range lines {
		need[l.ProductID] += l.Quantity
	}
	for id, qty := range need {
		p := products[id]
		if !p.TrackStock {
			continue
		}
		if err := tx.Model(&p).Update("stock", p.Stock-qty).Error; err != nil {
			return err
		}
	}
	return nil
}

// recomputeTotal derives the order total from its non-cancelled lines.
func recomputeTotal(tx *gorm.DB, order *model.Order) error {
	var items []model.OrderItem
	if err := tx.Where("order_id = ? AND status <> ?", order.ID, model.ItemCancelled).Find(&items).Error; err != nil {
		return err
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	if total.Equal(order.Total) {
		return nil
	}
	return tx.Model(order).Update("total", total).Error
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.created_at, order_items.id")
	}).Preload("Items.Product")
}

func (g *Gateway) OrderByID(ctx context.Context, id uint) (model.Order, error) {
	var o model.Order
	err := withLines(g.conn(ctx)).First(&o, id).Error
	return o, translate(err)
}

// OrderForTable returns the table and the order linked to it.
func (g *Gateway) OrderForTable(ctx context.Context, number int) (model.Table, model.Order, error) {
	t, err := g.TableByNumber(ctx, number)
	if err != nil {
		return t, model.Order{}, err
	}
	if t.CurrentOrderID == nil {
		return t, model.Order{}, ErrNoActiveOrder
	}
	o, err := g.OrderByID(ctx, *t.CurrentOrderID)
	if err != nil {
		return t, o, err
	}
	return t, o, nil
}

type SettleRequest struct {
	TableNumber int
	Method      model.PaymentMethod
	CashierID   uuid.UUID
	// Tendered is the cash handed over; it is checked against the total
	// recomputed inside the transaction.
	Tendered *decimal.Decimal
}

// SettleOrder marks the table's order paid and frees the table in one
// transaction.
func (g *Gateway) SettleOrder(ctx context.Context, req SettleRequest) (model.Order, error) {
	var order model.Order
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		var t model.Table
		if err := forUpdate(tx).Where("number = ?", req.TableNumber).First(&t).Error; err != nil {
			return err
		}
		if t.CurrentOrderID == nil {
			return ErrNoActiveOrder
		}
		if err := forUpdate(tx).First(&order, *t.CurrentOrderID).Error; err != nil {
			return err
		}
		if order.Terminal() {
			return ErrOrderClosed
		}
		if err := recomputeTotal(tx, &order); err != nil {
			return err
		}
		if req.Method == model.PayCash && req.Tendered != nil && req.Tendered.LessThan(order.Total) {
			return ErrTotalChanged
		}

		method := req.Method
		cashier := req.CashierID
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":         model.OrderPaid,
			"payment_method": method,
			"cashier_id":     cashier,
		}).Error; err != nil {
			return err
		}
		order.PaymentMethod = &method
		order.CashierID = &cashier

		t.Free()
		return tx.Save(&t).Error
	})
	if err != nil {
		return order, err
	}
	return g.OrderByID(ctx, order.ID)
}

// CancelOrder cancels an open order together with its unfinished lines and
// frees the table that was linked to it.
func (g *Gateway) CancelOrder(ctx context.Context, orderID uint, by uuid.UUID, reason string) (model.Order, error) {
	var order model.Order
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&order, orderID).Error; err != nil {
			return err
		}
		if order.Terminal() {
			return ErrOrderClosed
		}
		var t model.Table
		err := forUpdate(tx).Where("current_order_id = ?", order.ID).First(&t).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var lines []model.OrderItem
		if err := tx.Where("order_id = ? AND status IN ?", order.ID,
			[]model.ItemStatus{model.ItemPending, model.ItemPreparing}).Find(&lines).Error; err != nil {
			return err
		}
		for i := range lines {
			if err := tx.Model(&lines[i]).Update("status", model.ItemCancelled).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":        model.OrderCancelled,
			"cancelled_by":  by,
			"cancel_reason": reason,
		}).Error; err != nil {
			return err
		}

		if t.ID != 0 {
			t.Free()
			return tx.Save(&t).Error
		}
		return nil
	})
	if err != nil {
		return order, err
	}
	return g.OrderByID(ctx, order.ID)
}

func (g *Gateway) OrdersByWaiter(ctx context.Context, waiterID uuid.UUID, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := withLines(g.conn(ctx)).Where("waiter_id = ?", waiterID).
		Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, translate(err)
}

// ActiveOrders lists orders that are neither paid nor cancelled.
func (g *Gateway) ActiveOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := withLines(g.conn(ctx)).
		Where("status NOT IN ?", []model.OrderStatus{model.OrderPaid, model.OrderCancelled}).
		Order("created_at").Find(&orders).Error
	return orders, translate(err)
}

// PaidOrdersBetween lists paid orders created in [from, to).
func (g *Gateway) PaidOrdersBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := withLines(g.conn(ctx)).
		Where("status = ? AND created_at >= ? AND created_at < ?", model.OrderPaid, from, to).
		Order("created_at").Find(&orders).Error
	return orders, translate(err)
}

// CashSalesSince sums cash payments taken by a cashier since t.
func (g *Gateway) CashSalesSince(ctx context.Context, cashierID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return cashSalesSince(g.conn(ctx), cashierID, since)
}

func cashSalesSince(db *gorm.DB, cashierID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var orders []model.Order
	err := db.Select("id", "total").
		Where("status = ? AND payment_method = ? AND cashier_id = ? AND updated_at >= ?",
			model.OrderPaid, model.PayCash, cashierID, since).
		Find(&orders).Error
	if err != nil {
		return decimal.Zero, translate(err)
	}
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.Total)
	}
	return sum, nil
}
