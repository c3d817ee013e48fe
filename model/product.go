package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductionArea string

const (
	AreaKitchen ProductionArea = "kitchen"
	AreaBar     ProductionArea = "bar"
	AreaOther   ProductionArea = "other"
)

func (a ProductionArea) Valid() bool {
	return a == AreaKitchen || a == AreaBar || a == AreaOther
}

// Product is a menu entry. Removing a product only clears Available so that
// historical order lines keep their reference.
type Product struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Name           string          `json:"name" gorm:"not null;index"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Area           ProductionArea  `json:"area" gorm:"type:varchar(20);not null"`
	ImageURL       string          `json:"image_url"`
	TrackStock     bool            `json:"track_stock" gorm:"not null"`
	Stock          int             `json:"stock" gorm:"not null"`
	DailyBaseStock *int            `json:"daily_base_stock"`
	Featured       bool            `json:"featured" gorm:"not null"`
	Available      bool            `json:"available" gorm:"not null;index"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Product) TableName() string { return "products" }
