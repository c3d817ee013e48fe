package gateway

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"gorm.io/gorm"

	"restobar/model"
)

type ProductQuery struct {
	Search        string
	Area          model.ProductionArea
	IncludeHidden bool
}

func (g *Gateway) ListProducts(ctx context.Context, q ProductQuery) ([]model.Product, error) {
	var products []model.Product
	db := g.conn(ctx).Order("featured DESC, name")
	if !q.IncludeHidden {
		db = db.Where("available = ?", true)
	}
	if q.Area != "" {
		db = db.Where("area = ?", q.Area)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		db = db.Where("name ILIKE ?", "%"+s+"%")
	}
	err := db.Find(&products).Error
	return products, translate(err)
}

func (g *Gateway) ProductByID(ctx context.Context, id uint) (model.Product, error) {
	var p model.Product
	err := g.conn(ctx).First(&p, id).Error
	return p, translate(err)
}

func (g *Gateway) ProductsByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error) {
	out := make(map[uint]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []model.Product
	if err := g.conn(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, translate(err)
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (g *Gateway) CreateProduct(ctx context.Context, p *model.Product) error {
	return translate(g.conn(ctx).Create(p).Error)
}

// CreateProducts inserts a batch in one transaction; nothing is stored if any
// row fails.
func (g *Gateway) CreateProducts(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return g.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&products).Error
	})
}

func (g *Gateway) SaveProduct(ctx context.Context, p *model.Product) error {
	return translate(g.conn(ctx).Save(p).Error)
}

// HideProduct clears the availability flag. Order lines keep pointing at the
// product.
func (g *Gateway) HideProduct(ctx context.Context, id uint) (model.Product, error) {
	p, err := g.ProductByID(ctx, id)
	if err != nil {
		return p, err
	}
	if !p.Available {
		return p, nil
	}
	err = g.conn(ctx).Model(&p).Update("available", false).Error
	return p, translate(err)
}

// ResetDailyStock sets the stock of every tracked product that has a daily
// base back to that base.
func (g *Gateway) ResetDailyStock(ctx context.Context) (int64, error) {
	res := g.conn(ctx).Model(&model.Product{}).
		Where("track_stock = ? AND daily_base_stock IS NOT NULL", true).
		Update("stock", gorm.Expr("daily_base_stock"))
	return res.RowsAffected, translate(res.Error)
}

// UploadProductImage stores an already compressed image in the product
// bucket and returns its public URL.
func (g *Gateway) UploadProductImage(ctx context.Context, name string, data []byte) (string, error) {
	if g.store == nil {
		return "", errors.New("no storage configured")
	}
	return g.store.Save(ctx, path.Join("products", name), bytes.NewReader(data))
}

func (g *Gateway) DeleteProductImage(ctx context.Context, url string) error {
	if g.store == nil || url == "" {
		return nil
	}
	return g.store.Delete(ctx, path.Join("products", path.Base(url)))
}
