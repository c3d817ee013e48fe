package gateway

import (
	"context"

	"gorm.io/gorm"

	"restobar/model"
)

func (g *Gateway) ListTables(ctx context.Context) ([]model.Table, error) {
	var tables []model.Table
	err := g.conn(ctx).Order("number").Find(&tables).Error
	return tables, translate(err)
}

func (g *Gateway) TableByNumber(ctx context.Context, number int) (model.Table, error) {
	var t model.Table
	err := g.conn(ctx).Where("number = ?", number).First(&t).Error
	return t, translate(err)
}

func (g *Gateway) CreateTable(ctx context.Context, t *model.Table) error {
	t.Status = model.TableFree
	t.CurrentOrderID = nil
	return translate(g.conn(ctx).Create(t).Error)
}

func (g *Gateway) UpdateTableCapacity(ctx context.Context, number, capacity int) (model.Table, error) {
	var t model.Table
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("number = ?", number).First(&t).Error; err != nil {
			return err
		}
		return tx.Model(&t).Update("capacity", capacity).Error
	})
	return t, err
}

// DeleteTable removes a table that is free.
func (g *Gateway) DeleteTable(ctx context.Context, number int) error {
	return g.transaction(ctx, func(tx *gorm.DB) error {
		var t model.Table
		if err := forUpdate(tx).Where("number = ?", number).First(&t).Error; err != nil {
			return err
		}
		if t.Status != model.TableFree {
			return ErrTableBusy
		}
		return tx.Delete(&t).Error
	})
}

// RequestBill flags an occupied table so cashiers see the patron wants to
// pay. It does not touch the order.
func (g *Gateway) RequestBill(ctx context.Context, number int) (model.Table, error) {
	var t model.Table
	err := g.transaction(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("number = ?", number).First(&t).Error; err != nil {
			return err
		}
		if t.Status == model.TableFree || t.CurrentOrderID == nil {
			return ErrNoActiveOrder
		}
		if t.Status == model.TableBillRequested {
			return nil
		}
		return tx.Model(&t).Update("status", model.TableBillRequested).Error
	})
	return t, err
}
