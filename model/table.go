package model

import "time"

type TableStatus string

const (
	TableFree          TableStatus = "free"
	TableOccupied      TableStatus = "occupied"
	TableBillRequested TableStatus = "bill_requested"
)

// Table is a seat on the floor plan. A table is linked to an order exactly
// when its status is not free.
type Table struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	Number         int         `json:"number" gorm:"uniqueIndex;not null"`
	Capacity       int         `json:"capacity" gorm:"not null;default:4"`
	Status         TableStatus `json:"status" gorm:"type:varchar(20);not null;default:'free'"`
	CurrentOrderID *uint       `json:"current_order_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (Table) TableName() string { return "tables" }

func (t *Table) Occupy(orderID uint) {
	t.Status = TableOccupied
	t.CurrentOrderID = &orderID
}

func (t *Table) Free() {
	t.Status = TableFree
	t.CurrentOrderID = nil
}

func (t Table) Consistent() bool {
	return (t.CurrentOrderID != nil) == (t.Status != TableFree)
}
