package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderServed     OrderStatus = "served"
	OrderPaid       OrderStatus = "paid"
	OrderCancelled  OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PayCash     PaymentMethod = "cash"
	PayCard     PaymentMethod = "card"
	PayQR       PaymentMethod = "qr"
	PayTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayCard, PayQR, PayTransfer:
		return true
	}
	return false
}

type Order struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	DailyNumber   int             `json:"daily_number"`
	TableNumber   int             `json:"table_number" gorm:"index;not null"`
	WaiterID      *uuid.UUID      `json:"waiter_id" gorm:"type:uuid;index"`
	CashierID     *uuid.UUID      `json:"cashier_id" gorm:"type:uuid"`
	Status        OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Total         decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null;default:0"`
	PaymentMethod *PaymentMethod  `json:"payment_method" gorm:"type:varchar(20)"`
	CancelledBy   *uuid.UUID      `json:"cancelled_by" gorm:"type:uuid"`
	CancelReason  string          `json:"cancel_reason"`
	Items         []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o Order) Terminal() bool {
	return o.Status == OrderPaid || o.Status == OrderCancelled
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemDelivered ItemStatus = "delivered"
	ItemCancelled ItemStatus = "cancelled"
)

// InProduction reports whether the line still waits on the kitchen or bar.
func (s ItemStatus) InProduction() bool {
	return s == ItemPending || s == ItemPreparing
}

// OrderItem is one line of an order. UnitPrice is a snapshot of the product
// price at submission time.
type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"index;not null"`
	Order     *Order          `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	ProductID uint            `json:"product_id" gorm:"index;not null"`
	Product   *Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Note      string          `json:"note" gorm:"type:text"`
	Status    ItemStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Area returns the production area of the line, or "" when the product was
// not loaded.
func (i OrderItem) Area() ProductionArea {
	if i.Product == nil {
		return ""
	}
	return i.Product.Area
}
