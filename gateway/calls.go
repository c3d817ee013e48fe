package gateway

import (
	"context"

	"github.com/google/uuid"

	"restobar/model"
)

func (g *Gateway) CreateWaiterCall(ctx context.Context, call *model.WaiterCall) error {
	if call.Status == "" {
		call.Status = "pending"
	}
	return translate(g.conn(ctx).Create(call).Error)
}

// WaiterCallsFor lists calls addressed to the waiter or broadcast to all.
func (g *Gateway) WaiterCallsFor(ctx context.Context, waiterID uuid.UUID, limit int) ([]model.WaiterCall, error) {
	var calls []model.WaiterCall
	err := g.conn(ctx).
		Where("recipient_waiter_id = ? OR recipient_waiter_id IS NULL", waiterID).
		Order("created_at DESC").Limit(limit).Find(&calls).Error
	return calls, translate(err)
}
