package production

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restobar/model"
)

var t0 = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func line(id, orderID uint, area model.ProductionArea, at time.Time) model.OrderItem {
	return model.OrderItem{
		ID:        id,
		OrderID:   orderID,
		ProductID: id + 100,
		Product:   &model.Product{ID: id + 100, Name: "P", Area: area},
		Order:     &model.Order{ID: orderID, TableNumber: int(orderID), Status: model.OrderPending},
		Quantity:  1,
		Status:    model.ItemPending,
		CreatedAt: at,
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    Urgency
	}{
		{0, UrgencyNormal},
		{14*time.Minute + 59*time.Second, UrgencyNormal},
		{15 * time.Minute, UrgencyWarning},
		{29*time.Minute + 59*time.Second, UrgencyWarning},
		{30 * time.Minute, UrgencyCritical},
		{2 * time.Hour, UrgencyCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.elapsed), tt.elapsed.String())
	}
}

func TestCanAct(t *testing.T) {
	tests := []struct {
		role model.UserRole
		area model.ProductionArea
		want bool
	}{
		{model.RoleAdmin, model.AreaKitchen, true},
		{model.RoleAdmin, model.AreaBar, true},
		{model.RoleCashier, model.AreaKitchen, true},
		{model.RoleKitchen, model.AreaKitchen, true},
		{model.RoleKitchen, model.AreaBar, false},
		{model.RoleBar, model.AreaBar, true},
		{model.RoleBar, model.AreaKitchen, false},
		{model.RoleWaiter, model.AreaKitchen, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanAct(tt.role, tt.area), "%s on %s", tt.role, tt.area)
	}
}

func TestGroupPendingFIFORegardlessOfInputOrder(t *testing.T) {
	// order 2 holds the oldest line t1; order 1 starts at t2
	items := []model.OrderItem{
		line(3, 2, model.AreaKitchen, t0.Add(3*time.Minute)), // t3
		line(2, 1, model.AreaKitchen, t0.Add(2*time.Minute)), // t2
		line(1, 2, model.AreaKitchen, t0.Add(1*time.Minute)), // t1
	}
	permutations := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {1, 2, 0}}
	for _, perm := range permutations {
		in := []model.OrderItem{items[perm[0]], items[perm[1]], items[perm[2]]}
		groups := GroupPending(in, "", t0.Add(10*time.Minute))
		require.Len(t, groups, 2)
		assert.Equal(t, uint(2), groups[0].OrderID)
		assert.Equal(t, uint(1), groups[1].OrderID)
		require.Len(t, groups[0].Lines, 2)
		assert.Equal(t, uint(1), groups[0].Lines[0].ID)
		assert.Equal(t, uint(3), groups[0].Lines[1].ID)
	}
}

func TestGroupPendingTieBreaksByOrderID(t *testing.T) {
	groups := GroupPending([]model.OrderItem{
		line(1, 9, model.AreaBar, t0),
		line(2, 4, model.AreaBar, t0),
	}, "", t0)
	require.Len(t, groups, 2)
	assert.Equal(t, uint(4), groups[0].OrderID)
}

func TestGroupPendingFiltersAndAges(t *testing.T) {
	cancelled := line(4, 3, model.AreaKitchen, t0)
	cancelled.Order.Status = model.OrderCancelled
	ready := line(5, 1, model.AreaKitchen, t0)
	ready.Status = model.ItemReady

	items := []model.OrderItem{
		line(1, 1, model.AreaKitchen, t0),
		line(2, 1, model.AreaBar, t0.Add(time.Minute)),
		line(3, 2, model.AreaBar, t0.Add(5*time.Minute)),
		cancelled,
		ready,
	}

	kitchen := GroupPending(items, model.AreaKitchen, t0.Add(15*time.Minute))
	require.Len(t, kitchen, 1)
	assert.Len(t, kitchen[0].Lines, 1)
	assert.Equal(t, 15, kitchen[0].ElapsedMinutes)
	assert.Equal(t, UrgencyWarning, kitchen[0].Urgency)

	bar := GroupPending(items, model.AreaBar, t0.Add(19*time.Minute+59*time.Second))
	require.Len(t, bar, 2)
	assert.Equal(t, uint(1), bar[0].OrderID)
	assert.Equal(t, 18, bar[0].ElapsedMinutes)
	assert.Equal(t, UrgencyWarning, bar[0].Urgency)
	assert.Equal(t, 14, bar[1].ElapsedMinutes)
	assert.Equal(t, UrgencyNormal, bar[1].Urgency)

	all := GroupPending(items, "", t0.Add(30*time.Minute))
	require.Len(t, all, 2)
	assert.Len(t, all[0].Lines, 2)
	assert.Equal(t, UrgencyCritical, all[0].Urgency)
}
