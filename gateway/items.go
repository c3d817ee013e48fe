package gateway

import (
	"context"

	"gorm.io/gorm"

	"restobar/model"
)

// PendingItems lists lines still in production whose order is not cancelled,
// oldest first, with product and order loaded.
func (g *Gateway) PendingItems(ctx context.Context) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := g.conn(ctx).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.status IN ? AND orders.status <> ?",
			[]model.ItemStatus{model.ItemPending, model.ItemPreparing}, model.OrderCancelled).
		Preload("Product").Preload("Order").
		Order("order_items.created_at, order_items.id").
		Find(&items).Error
	return items, translate(err)
}

func (g *Gateway) ItemByID(ctx context.Context, id uint) (model.OrderItem, error) {
	var it model.OrderItem
	err := g.conn(ctx).Preload("Product").Preload("Order").First(&it, id).Error
	return it, translate(err)
}

// ReadyItems returns the most recently finished lines, optionally limited to
// one production area.
func (g *Gateway) ReadyItems(ctx context.Context, area model.ProductionArea, limit int) ([]model.OrderItem, error) {
	var items []model.OrderItem
	q := g.conn(ctx).
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.status = ?", model.ItemReady)
	if area != "" {
		q = q.Where("products.area = ?", area)
	}
	err := q.Preload("Product").Preload("Order").
		Order("order_items.updated_at DESC").Limit(limit).
		Find(&items).Error
	return items, translate(err)
}

// SetItemStatus moves a line to status `to` if its current status is one of
// `from`.
func (g *Gateway) SetItemStatus(ctx context.Context, id uint, from []model.ItemStatus, to model.ItemStatus) (model.OrderItem, error) {
	var it model.OrderItem
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&it, id).Error; err != nil {
			return err
		}
		allowed := false
		for _, s := range from {
			if it.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrStatusConflict
		}
		return tx.Model(&it).Update("status", to).Error
	})
	if err != nil {
		return it, err
	}
	return g.ItemByID(ctx, id)
}
