package catalog

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"restobar/gateway"
	"restobar/model"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var header = []interface{}{"name", "price", "area", "description", "stock", "daily_base", "featured"}

func TestParseSheet(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		header,
		{"Burger", "12.50", "Kitchen", "Beef and cheese"},
		{"Lemonade", "4", "bar", "", "20", "30", "yes"},
		{"Broken", "abc", "bar"},
		{"NoArea", "3", "garden"},
		{"Short", "3"},
		{},
		{"Water", "1.5", "other"},
	})

	products, skipped, err := ParseSheet(buf)
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, "Burger", products[0].Name)
	assert.Equal(t, model.AreaKitchen, products[0].Area)
	assert.True(t, decimal.RequireFromString("12.5").Equal(products[0].Price))
	assert.False(t, products[0].TrackStock)
	assert.True(t, products[0].Available)

	assert.True(t, products[1].TrackStock)
	assert.Equal(t, 20, products[1].Stock)
	require.NotNil(t, products[1].DailyBaseStock)
	assert.Equal(t, 30, *products[1].DailyBaseStock)
	assert.True(t, products[1].Featured)

	require.Len(t, skipped, 3)
	assert.Equal(t, 4, skipped[0].Row)
	assert.Equal(t, 5, skipped[1].Row)
	assert.Equal(t, 6, skipped[2].Row)
}

func TestParseSheetEmpty(t *testing.T) {
	_, _, err := ParseSheet(workbook(t, [][]interface{}{header}))
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, skipped, err := ParseSheet(workbook(t, [][]interface{}{header, {"Bad", "-1", "bar"}}))
	assert.ErrorIs(t, err, ErrNoValidRows)
	assert.Len(t, skipped, 1)

	_, _, err = ParseSheet(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

func TestProductInputValidate(t *testing.T) {
	neg := -1
	tests := []struct {
		name string
		in   ProductInput
		ok   bool
	}{
		{"valid", ProductInput{Name: "Tea", Price: decimal.NewFromInt(2), Area: model.AreaBar}, true},
		{"blank name", ProductInput{Name: "  ", Price: decimal.NewFromInt(2), Area: model.AreaBar}, false},
		{"zero price", ProductInput{Name: "Tea", Area: model.AreaBar}, false},
		{"bad area", ProductInput{Name: "Tea", Price: decimal.NewFromInt(2), Area: "roof"}, false},
		{"negative base", ProductInput{Name: "Tea", Price: decimal.NewFromInt(2), Area: model.AreaBar, DailyBaseStock: &neg}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidProduct)
			}
		})
	}
}

func TestApplyClearsStockForUntracked(t *testing.T) {
	base := 10
	p := model.Product{ID: 3, Stock: 7, DailyBaseStock: &base, Available: false}
	ProductInput{Name: "Soup", Price: decimal.NewFromInt(5), Area: model.AreaKitchen, Stock: 4}.Apply(&p)
	assert.Equal(t, 0, p.Stock)
	assert.Nil(t, p.DailyBaseStock)
	assert.False(t, p.Available, "existing products keep their availability unless set")
}

type fakeStore struct {
	products map[uint]model.Product
	nextID   uint
	uploads  map[string][]byte
	deleted  []string
	failSave bool
	resets   int64
}

func newFake() *fakeStore {
	return &fakeStore{products: make(map[uint]model.Product), uploads: make(map[string][]byte)}
}

func (f *fakeStore) ListProducts(_ context.Context, q gateway.ProductQuery) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if (q.IncludeHidden || p.Available) && (q.Area == "" || q.Area == p.Area) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ProductByID(_ context.Context, id uint) (model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return p, gateway.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CreateProduct(_ context.Context, p *model.Product) error {
	if f.failSave {
		return errors.New("insert failed")
	}
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = *p
	return nil
}

func (f *fakeStore) CreateProducts(ctx context.Context, products []model.Product) error {
	for i := range products {
		if err := f.CreateProduct(ctx, &products[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) SaveProduct(_ context.Context, p *model.Product) error {
	if f.failSave {
		return errors.New("update failed")
	}
	f.products[p.ID] = *p
	return nil
}

func (f *fakeStore) HideProduct(_ context.Context, id uint) (model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return p, gateway.ErrNotFound
	}
	p.Available = false
	f.products[id] = p
	return p, nil
}

func (f *fakeStore) ResetDailyStock(context.Context) (int64, error) {
	return f.resets, nil
}

func (f *fakeStore) UploadProductImage(_ context.Context, name string, data []byte) (string, error) {
	f.uploads[name] = data
	return "/uploads/products/" + name, nil
}

func (f *fakeStore) DeleteProductImage(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newService(store *fakeStore) *Service {
	svc := NewService(store, nil)
	tick := int64(0)
	svc.now = func() time.Time {
		tick++
		return time.Unix(0, tick)
	}
	return svc
}

func TestCreateWithImage(t *testing.T) {
	store := newFake()
	svc := newService(store)
	data := pngImage(t, 1200, 600)

	p, err := svc.Create(context.Background(),
		ProductInput{Name: "Pizza", Price: decimal.NewFromInt(9), Area: model.AreaKitchen},
		&Image{Filename: "pizza.PNG", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/products/product-1.jpg", p.ImageURL)
	require.Len(t, store.uploads, 1)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(store.uploads["product-1.jpg"]))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestCreateRejectsBadImage(t *testing.T) {
	store := newFake()
	svc := newService(store)
	in := ProductInput{Name: "Pizza", Price: decimal.NewFromInt(9), Area: model.AreaKitchen}

	_, err := svc.Create(context.Background(), in, &Image{Filename: "pizza.gif", Size: 10, Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = svc.Create(context.Background(), in, &Image{Filename: "pizza.jpg", Size: MaxImageSize + 1, Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = svc.Create(context.Background(), in, &Image{Filename: "pizza.jpg", Size: 4, Body: bytes.NewReader([]byte("junk"))})
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Empty(t, store.products)
}

func TestCreateRemovesImageWhenInsertFails(t *testing.T) {
	store := newFake()
	store.failSave = true
	svc := newService(store)
	data := pngImage(t, 10, 10)

	_, err := svc.Create(context.Background(),
		ProductInput{Name: "Pizza", Price: decimal.NewFromInt(9), Area: model.AreaKitchen},
		&Image{Filename: "p.png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.Error(t, err)
	assert.Equal(t, []string{"/uploads/products/product-1.jpg"}, store.deleted)
}

func TestUpdateReplacesImage(t *testing.T) {
	store := newFake()
	store.products[4] = model.Product{ID: 4, Name: "Old", ImageURL: "/uploads/products/old.jpg", Available: true}
	svc := newService(store)
	data := pngImage(t, 10, 10)

	p, err := svc.Update(context.Background(), 4,
		ProductInput{Name: "New", Price: decimal.NewFromInt(3), Area: model.AreaBar},
		&Image{Filename: "n.jpeg", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.True(t, p.Available)
	assert.Equal(t, []string{"/uploads/products/old.jpg"}, store.deleted)

	_, err = svc.Update(context.Background(), 99,
		ProductInput{Name: "New", Price: decimal.NewFromInt(3), Area: model.AreaBar}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteHidesProduct(t *testing.T) {
	store := newFake()
	store.products[1] = model.Product{ID: 1, Name: "Tea", Area: model.AreaBar, Available: true}
	svc := newService(store)

	_, err := svc.Delete(context.Background(), 1)
	require.NoError(t, err)

	list, err := svc.List(context.Background(), gateway.ProductQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Contains(t, store.products, uint(1))

	_, err = svc.List(context.Background(), gateway.ProductQuery{Area: "roof"})
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestImport(t *testing.T) {
	store := newFake()
	svc := newService(store)

	res, err := svc.Import(context.Background(), workbook(t, [][]interface{}{
		header,
		{"Tea", "2", "bar"},
		{"Soup", "6", "kitchen"},
		{"Nope", "x", "bar"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Len(t, res.Skipped, 1)
	assert.Len(t, store.products, 2)
}

func TestResetDailyStock(t *testing.T) {
	store := newFake()
	store.resets = 3
	n, err := newService(store).ResetDailyStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
