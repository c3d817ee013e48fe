// Package report aggregates paid orders and cash sessions into sales reports.
package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restobar/model"
)

const (
	topProductCount = 5
	unassignedName  = "Unassigned"
	unknownProduct  = "Unknown"
)

type ProductStat struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// WaiterStat is one row of the waiter ranking. Orders without a waiter are
// counted under uuid.Nil.
type WaiterStat struct {
	WaiterID uuid.UUID       `json:"waiter_id"`
	Name     string          `json:"name"`
	Orders   int             `json:"orders"`
	Total    decimal.Decimal `json:"total"`
}

type OrderRow struct {
	ID          uint            `json:"id"`
	DailyNumber int             `json:"daily_number"`
	TableNumber int             `json:"table_number"`
	Waiter      string          `json:"waiter"`
	Method      string          `json:"method"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   string          `json:"created_at"`
}

type Summary struct {
	Range         Range                      `json:"range"`
	Revenue       decimal.Decimal            `json:"revenue"`
	Orders        int                        `json:"orders"`
	AverageTicket decimal.Decimal            `json:"average_ticket"`
	OpeningTotal  decimal.Decimal            `json:"opening_total"`
	CashSales     decimal.Decimal            `json:"cash_sales"`
	ExpectedCash  decimal.Decimal            `json:"expected_cash"`
	ByMethod      map[string]decimal.Decimal `json:"by_method"`
	TopProducts   []ProductStat              `json:"top_products"`
	LowProducts   []ProductStat              `json:"low_products"`
	Products      []ProductStat              `json:"products"`
	Waiters       []WaiterStat               `json:"waiters"`
	Detail        []OrderRow                 `json:"detail"`
}

// Build aggregates paid orders and the cash sessions opened in the same
// range. names maps waiter ids to display names.
func Build(r Range, orders []model.Order, sessions []model.CashSession, names map[uuid.UUID]string) Summary {
	s := Summary{
		Range:         r,
		Revenue:       decimal.Zero,
		AverageTicket: decimal.Zero,
		OpeningTotal:  decimal.Zero,
		CashSales:     decimal.Zero,
		ByMethod:      make(map[string]decimal.Decimal),
		Detail:        make([]OrderRow, 0, len(orders)),
	}

	products := make(map[string]*ProductStat)
	waiters := make(map[uuid.UUID]*WaiterStat)
	for _, o := range orders {
		s.Revenue = s.Revenue.Add(o.Total)
		s.Orders++

		method := "unknown"
		if o.PaymentMethod != nil {
			method = string(*o.PaymentMethod)
		}
		s.ByMethod[method] = s.ByMethod[method].Add(o.Total)
		if method == string(model.PayCash) {
			s.CashSales = s.CashSales.Add(o.Total)
		}

		waiter := waiterName(o.WaiterID, names)
		waiterID := uuid.Nil
		if o.WaiterID != nil {
			waiterID = *o.WaiterID
		}
		ws, ok := waiters[waiterID]
		if !ok {
			ws = &WaiterStat{WaiterID: waiterID, Name: waiter, Total: decimal.Zero}
			waiters[waiterID] = ws
		}
		ws.Orders++
		ws.Total = ws.Total.Add(o.Total)

		for _, it := range o.Items {
			if it.Status == model.ItemCancelled {
				continue
			}
			name := unknownProduct
			if it.Product != nil {
				name = it.Product.Name
			}
			ps, ok := products[name]
			if !ok {
				ps = &ProductStat{Name: name, Revenue: decimal.Zero}
				products[name] = ps
			}
			ps.Quantity += it.Quantity
			ps.Revenue = ps.Revenue.Add(it.Subtotal())
		}

		s.Detail = append(s.Detail, OrderRow{
			ID:          o.ID,
			DailyNumber: o.DailyNumber,
			TableNumber: o.TableNumber,
			Waiter:      waiter,
			Method:      method,
			Total:       o.Total,
			CreatedAt:   o.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	for _, cs := range sessions {
		s.OpeningTotal = s.OpeningTotal.Add(cs.OpeningAmount)
	}
	s.ExpectedCash = s.OpeningTotal.Add(s.CashSales)
	if s.Orders > 0 {
		s.AverageTicket = s.Revenue.Div(decimal.NewFromInt(int64(s.Orders))).Round(2)
	}

	s.Products = make([]ProductStat, 0, len(products))
	for _, p := range products {
		s.Products = append(s.Products, *p)
	}
	sort.SliceStable(s.Products, func(i, j int) bool {
		if s.Products[i].Quantity != s.Products[j].Quantity {
			return s.Products[i].Quantity > s.Products[j].Quantity
		}
		return s.Products[i].Name < s.Products[j].Name
	})
	s.TopProducts = s.Products[:min(topProductCount, len(s.Products))]
	s.LowProducts = make([]ProductStat, 0, topProductCount)
	for i := len(s.Products) - 1; i >= 0 && len(s.LowProducts) < topProductCount; i-- {
		s.LowProducts = append(s.LowProducts, s.Products[i])
	}

	s.Waiters = make([]WaiterStat, 0, len(waiters))
	for _, w := range waiters {
		s.Waiters = append(s.Waiters, *w)
	}
	sort.SliceStable(s.Waiters, func(i, j int) bool {
		if !s.Waiters[i].Total.Equal(s.Waiters[j].Total) {
			return s.Waiters[i].Total.GreaterThan(s.Waiters[j].Total)
		}
		if s.Waiters[i].Name != s.Waiters[j].Name {
			return s.Waiters[i].Name < s.Waiters[j].Name
		}
		return s.Waiters[i].WaiterID.String() < s.Waiters[j].WaiterID.String()
	})
	return s
}

func waiterName(id *uuid.UUID, names map[uuid.UUID]string) string {
	if id == nil {
		return unassignedName
	}
	if n, ok := names[*id]; ok && n != "" {
		return n
	}
	return unassignedName
}

// Daily is the sales sheet of a single day.
type Daily struct {
	Date         string          `json:"date"`
	Orders       []OrderRow      `json:"orders"`
	Total        decimal.Decimal `json:"total"`
	KitchenTotal decimal.Decimal `json:"kitchen_total"`
	BarTotal     decimal.Decimal `json:"bar_total"`
	OtherTotal   decimal.Decimal `json:"other_total"`
}

func BuildDaily(r Range, orders []model.Order, names map[uuid.UUID]string) Daily {
	d := Daily{
		Date:         r.From.Format(dateLayout),
		Orders:       make([]OrderRow, 0, len(orders)),
		Total:        decimal.Zero,
		KitchenTotal: decimal.Zero,
		BarTotal:     decimal.Zero,
		OtherTotal:   decimal.Zero,
	}
	for _, o := range orders {
		d.Total = d.Total.Add(o.Total)
		method := ""
		if o.PaymentMethod != nil {
			method = string(*o.PaymentMethod)
		}
		d.Orders = append(d.Orders, OrderRow{
			ID:          o.ID,
			DailyNumber: o.DailyNumber,
			TableNumber: o.TableNumber,
			Waiter:      waiterName(o.WaiterID, names),
			Method:      method,
			Total:       o.Total,
			CreatedAt:   o.CreatedAt.Format("15:04"),
		})
		for _, it := range o.Items {
			if it.Status == model.ItemCancelled {
				continue
			}
			switch it.Area() {
			case model.AreaKitchen:
				d.KitchenTotal = d.KitchenTotal.Add(it.Subtotal())
			case model.AreaBar:
				d.BarTotal = d.BarTotal.Add(it.Subtotal())
			default:
				d.OtherTotal = d.OtherTotal.Add(it.Subtotal())
			}
		}
	}
	return d
}
