package catalog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"restobar/gateway"
	"restobar/logger"
	"restobar/media"
	"restobar/model"
)

const (
	MaxImageSize = 5 << 20
	imageWidth   = 800
	imageQuality = 0.8
)

var ErrNotFound = gateway.ErrNotFound

type Store interface {
	ListProducts(ctx context.Context, q gateway.ProductQuery) ([]model.Product, error)
	ProductByID(ctx context.Context, id uint) (model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	CreateProducts(ctx context.Context, products []model.Product) error
	SaveProduct(ctx context.Context, p *model.Product) error
	HideProduct(ctx context.Context, id uint) (model.Product, error)
	ResetDailyStock(ctx context.Context) (int64, error)
	UploadProductImage(ctx context.Context, name string, data []byte) (string, error)
	DeleteProductImage(ctx context.Context, url string) error
}

// Image is an uploaded picture waiting to be attached to a product.
type Image struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, q gateway.ProductQuery) ([]model.Product, error) {
	if q.Area != "" && !q.Area.Valid() {
		return nil, fmt.Errorf("%w: unknown area %q", ErrInvalidProduct, q.Area)
	}
	return s.store.ListProducts(ctx, q)
}

func (s *Service) Get(ctx context.Context, id uint) (model.Product, error) {
	return s.store.ProductByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ProductInput, img *Image) (model.Product, error) {
	if err := in.Validate(); err != nil {
		return model.Product{}, err
	}
	var p model.Product
	in.Apply(&p)
	if img != nil {
		url, err := s.storeImage(ctx, img)
		if err != nil {
			return p, err
		}
		p.ImageURL = url
	}
	if err := s.store.CreateProduct(ctx, &p); err != nil {
		s.dropImage(ctx, p.ImageURL)
		return p, err
	}
	s.log.Info("", "product_created", fmt.Sprintf("product %d %q created", p.ID, p.Name))
	return p, nil
}

// Update replaces the editable fields of a product. A new image replaces the
// old one, which is removed from storage once the product is saved.
func (s *Service) Update(ctx context.Context, id uint, in ProductInput, img *Image) (model.Product, error) {
	if err := in.Validate(); err != nil {
		return model.Product{}, err
	}
	p, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return p, err
	}
	in.Apply(&p)
	old := p.ImageURL
	if img != nil {
		url, err := s.storeImage(ctx, img)
		if err != nil {
			return p, err
		}
		p.ImageURL = url
	}
	if err := s.store.SaveProduct(ctx, &p); err != nil {
		if p.ImageURL != old {
			s.dropImage(ctx, p.ImageURL)
		}
		return p, err
	}
	if p.ImageURL != old {
		s.dropImage(ctx, old)
	}
	return p, nil
}

// Delete hides the product from the menu. Past order lines keep it.
func (s *Service) Delete(ctx context.Context, id uint) (model.Product, error) {
	p, err := s.store.HideProduct(ctx, id)
	if err != nil {
		return p, err
	}
	s.log.Info("", "product_hidden", fmt.Sprintf("product %d hidden", id))
	return p, nil
}

func (s *Service) ResetDailyStock(ctx context.Context) (int64, error) {
	n, err := s.store.ResetDailyStock(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info("", "stock_reset", fmt.Sprintf("daily stock reset for %d products", n))
	return n, nil
}

type ImportResult struct {
	Count   int        `json:"count"`
	Skipped []RowError `json:"skipped"`
}

// Import bulk-creates products from a spreadsheet. Either every valid row is
// stored or none is.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	products, skipped, err := ParseSheet(r)
	res := ImportResult{Skipped: skipped}
	if res.Skipped == nil {
		res.Skipped = []RowError{}
	}
	if err != nil {
		return res, err
	}
	for _, sk := range skipped {
		s.log.Warn("", "product_import", fmt.Sprintf("row %d skipped: %s", sk.Row, sk.Reason))
	}
	if err := s.store.CreateProducts(ctx, products); err != nil {
		return res, fmt.Errorf("failed to insert products: %w", err)
	}
	res.Count = len(products)
	return res, nil
}

func (s *Service) storeImage(ctx context.Context, img *Image) (string, error) {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	allowed := map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	if !allowed[ext] || img.Size > MaxImageSize {
		return "", ErrInvalidImage
	}
	data, err := media.Compress(io.LimitReader(img.Body, MaxImageSize+1), imageWidth, imageQuality)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	name := fmt.Sprintf("product-%d.jpg", s.now().UnixNano())
	url, err := s.store.UploadProductImage(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return url, nil
}

func (s *Service) dropImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.store.DeleteProductImage(ctx, url); err != nil {
		s.log.Error("", "product_image", "failed to remove image "+url, err)
	}
}

