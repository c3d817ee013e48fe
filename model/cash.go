package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CashSessionStatus string

const (
	CashOpen   CashSessionStatus = "open"
	CashClosed CashSessionStatus = "closed"
)

// CashSession is a cashier's till period, from opening float to the declared
// count at close.
type CashSession struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	CashierID     uuid.UUID         `json:"cashier_id" gorm:"type:uuid;not null;index"`
	Cashier       *Profile          `json:"cashier,omitempty" gorm:"foreignKey:CashierID"`
	OpeningAmount decimal.Decimal   `json:"opening_amount" gorm:"type:numeric(12,2);not null"`
	ClosingAmount *decimal.Decimal  `json:"closing_amount" gorm:"type:numeric(12,2)"`
	SystemAmount  *decimal.Decimal  `json:"system_amount" gorm:"type:numeric(12,2)"`
	Status        CashSessionStatus `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	Notes         string            `json:"notes"`
	OpenedAt      time.Time         `json:"opened_at" gorm:"not null"`
	ClosedAt      *time.Time        `json:"closed_at"`
}

func (CashSession) TableName() string { return "cash_sessions" }

// Variance is declared minus computed; it is zero until the session closes.
func (c CashSession) Variance() decimal.Decimal {
	if c.ClosingAmount == nil || c.SystemAmount == nil {
		return decimal.Zero
	}
	return c.ClosingAmount.Sub(*c.SystemAmount)
}
