package production

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"restobar/model"
)

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"

	warningAfter  = 15
	criticalAfter = 30
)

// Classify maps the age of an order group to its urgency. Minutes are
// truncated, so 14:59 is still normal and 15:00 is a warning.
func Classify(elapsed time.Duration) Urgency {
	minutes := int(elapsed / time.Minute)
	switch {
	case minutes >= criticalAfter:
		return UrgencyCritical
	case minutes >= warningAfter:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// CanAct reports whether a role may change the status of a line from the
// given production area.
func CanAct(role model.UserRole, area model.ProductionArea) bool {
	switch role {
	case model.RoleAdmin, model.RoleCashier:
		return true
	case model.RoleKitchen:
		return area == model.AreaKitchen
	case model.RoleBar:
		return area == model.AreaBar
	}
	return false
}

// Group is one order's lines as shown on a production screen.
type Group struct {
	OrderID        uint              `json:"order_id"`
	DailyNumber    int               `json:"daily_number"`
	TableNumber    int               `json:"table_number"`
	WaiterID       *uuid.UUID        `json:"waiter_id"`
	WaiterName     string            `json:"waiter_name"`
	OldestAt       time.Time         `json:"oldest_at"`
	ElapsedMinutes int               `json:"elapsed_minutes"`
	Urgency        Urgency           `json:"urgency"`
	Lines          []model.OrderItem `json:"lines"`
}

// GroupPending groups production lines by order. Groups are ordered by their
// oldest line, first come first served, with the order id breaking ties;
// lines inside a group are ordered by creation time. An empty area keeps
// every line.
func GroupPending(items []model.OrderItem, area model.ProductionArea, now time.Time) []Group {
	byOrder := make(map[uint]*Group)
	for _, it := range items {
		if !it.Status.InProduction() {
			continue
		}
		if it.Order != nil && it.Order.Status == model.OrderCancelled {
			continue
		}
		if area != "" && it.Area() != area {
			continue
		}
		g, ok := byOrder[it.OrderID]
		if !ok {
			g = &Group{OrderID: it.OrderID}
			if it.Order != nil {
				g.DailyNumber = it.Order.DailyNumber
				g.TableNumber = it.Order.TableNumber
				g.WaiterID = it.Order.WaiterID
			}
			byOrder[it.OrderID] = g
		}
		g.Lines = append(g.Lines, it)
	}

	groups := make([]Group, 0, len(byOrder))
	for _, g := range byOrder {
		sort.SliceStable(g.Lines, func(i, j int) bool {
			if g.Lines[i].CreatedAt.Equal(g.Lines[j].CreatedAt) {
				return g.Lines[i].ID < g.Lines[j].ID
			}
			return g.Lines[i].CreatedAt.Before(g.Lines[j].CreatedAt)
		})
		g.OldestAt = g.Lines[0].CreatedAt
		elapsed := now.Sub(g.OldestAt)
		if elapsed < 0 {
			elapsed = 0
		}
		g.ElapsedMinutes = int(elapsed / time.Minute)
		g.Urgency = Classify(elapsed)
		groups = append(groups, *g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].OldestAt.Equal(groups[j].OldestAt) {
			return groups[i].OrderID < groups[j].OrderID
		}
		return groups[i].OldestAt.Before(groups[j].OldestAt)
	})
	return groups
}
