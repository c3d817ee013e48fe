// Package catalog manages the menu: products, their images and stock.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"restobar/model"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidImage   = errors.New("invalid image, only JPG/JPEG/PNG up to 5MB allowed")
)

type ProductInput struct {
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	Price          decimal.Decimal      `json:"price"`
	Area           model.ProductionArea `json:"area"`
	TrackStock     bool                 `json:"track_stock"`
	Stock          int                  `json:"stock"`
	DailyBaseStock *int                 `json:"daily_base_stock"`
	Featured       bool                 `json:"featured"`
	Available      *bool                `json:"available"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if !in.Area.Valid() {
		return fmt.Errorf("%w: unknown area %q", ErrInvalidProduct, in.Area)
	}
	if in.Stock < 0 || (in.DailyBaseStock != nil && *in.DailyBaseStock < 0) {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	return nil
}

// Apply copies the input onto p. Stock fields are cleared for untracked
// products.
func (in ProductInput) Apply(p *model.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Price = in.Price.Round(2)
	p.Area = in.Area
	p.TrackStock = in.TrackStock
	p.Featured = in.Featured
	if in.TrackStock {
		p.Stock = in.Stock
		p.DailyBaseStock = in.DailyBaseStock
	} else {
		p.Stock = 0
		p.DailyBaseStock = nil
	}
	if in.Available != nil {
		p.Available = *in.Available
	} else if p.ID == 0 {
		p.Available = true
	}
}
