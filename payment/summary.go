package payment

import (
	"errors"

	"github.com/shopspring/decimal"

	"restobar/model"
)

var (
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrInsufficientTender = errors.New("tendered cash does not cover the total")
)

// Summary is the bill of a table as the cashier sees it.
type Summary struct {
	TableNumber     int               `json:"table_number"`
	OrderID         uint              `json:"order_id"`
	DailyNumber     int               `json:"daily_number"`
	Lines           []model.OrderItem `json:"lines"`
	Total           decimal.Decimal   `json:"total"`
	KitchenTotal    decimal.Decimal   `json:"kitchen_total"`
	BarTotal        decimal.Decimal   `json:"bar_total"`
	OtherTotal      decimal.Decimal   `json:"other_total"`
	PendingCount    int               `json:"pending_count"`
	EarlySettlement bool              `json:"early_settlement"`
	// CanPay stays true: unfinished lines are a warning, not a block.
	CanPay bool `json:"can_pay"`
}

// Summarize derives the amounts due from the order lines. Cancelled lines are
// listed but not charged.
func Summarize(o model.Order) Summary {
	s := Summary{
		TableNumber:  o.TableNumber,
		OrderID:      o.ID,
		DailyNumber:  o.DailyNumber,
		Lines:        o.Items,
		Total:        decimal.Zero,
		KitchenTotal: decimal.Zero,
		BarTotal:     decimal.Zero,
		OtherTotal:   decimal.Zero,
		CanPay:       true,
	}
	if s.Lines == nil {
		s.Lines = []model.OrderItem{}
	}
	for _, it := range o.Items {
		if it.Status == model.ItemCancelled {
			continue
		}
		sub := it.Subtotal()
		s.Total = s.Total.Add(sub)
		switch it.Area() {
		case model.AreaKitchen:
			s.KitchenTotal = s.KitchenTotal.Add(sub)
		case model.AreaBar:
			s.BarTotal = s.BarTotal.Add(sub)
		default:
			s.OtherTotal = s.OtherTotal.Add(sub)
		}
		if it.Status.InProduction() {
			s.PendingCount++
		}
	}
	s.EarlySettlement = s.PendingCount > 0
	return s
}

type Tender struct {
	Method   model.PaymentMethod `json:"method"`
	Tendered *decimal.Decimal    `json:"tendered,omitempty"`
	Change   decimal.Decimal     `json:"change"`
}

// ValidateTender checks a payment against the total. Cash must cover the
// whole total and yields change; other methods ignore the tendered amount.
func ValidateTender(method model.PaymentMethod, tendered *decimal.Decimal, total decimal.Decimal) (Tender, error) {
	if !method.Valid() {
		return Tender{}, ErrInvalidMethod
	}
	t := Tender{Method: method, Change: decimal.Zero}
	if method != model.PayCash {
		return t, nil
	}
	if tendered == nil || tendered.LessThan(total) {
		return t, ErrInsufficientTender
	}
	amount := *tendered
	t.Tendered = &amount
	t.Change = amount.Sub(total)
	return t, nil
}
