package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restobar/catalog"
	"restobar/gateway"
	"restobar/model"
)

func (ctl *Controller) ListProducts(c *gin.Context) {
	q := gateway.ProductQuery{
		Search: c.Query("search"),
		Area:   model.ProductionArea(c.Query("area")),
	}
	if c.Query("all") == "true" && callerRole(c) == model.RoleAdmin {
		q.IncludeHidden = true
	}
	products, err := ctl.Catalog.List(c.Request.Context(), q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, products)
}

func (ctl *Controller) GetProduct(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	p, err := ctl.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, p)
}

// productForm reads a multipart product form. The image is optional.
func productForm(c *gin.Context) (catalog.ProductInput, *catalog.Image, func(), bool) {
	noop := func() {}
	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil || !price.IsPositive() {
		badRequest(c, "Invalid or missing price")
		return catalog.ProductInput{}, nil, noop, false
	}
	in := catalog.ProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		Area:        model.ProductionArea(c.PostForm("area")),
		TrackStock:  c.PostForm("track_stock") == "true",
		Featured:    c.PostForm("featured") == "true",
	}
	if raw := c.PostForm("stock"); raw != "" {
		if in.Stock, err = strconv.Atoi(raw); err != nil {
			badRequest(c, "Invalid stock")
			return in, nil, noop, false
		}
	}
	if raw := c.PostForm("daily_base_stock"); raw != "" {
		base, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid daily base stock")
			return in, nil, noop, false
		}
		in.DailyBaseStock = &base
	}
	if raw := c.PostForm("available"); raw != "" {
		available := raw == "true"
		in.Available = &available
	}

	file, err := c.FormFile("image")
	if err != nil {
		return in, nil, noop, true
	}
	if file.Size > catalog.MaxImageSize {
		badRequest(c, "Image size exceeds 5MB limit")
		return in, nil, noop, false
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unable to open image"})
		return in, nil, noop, false
	}
	return in, &catalog.Image{Filename: file.Filename, Size: file.Size, Body: f}, func() { f.Close() }, true
}

func (ctl *Controller) AddProduct(c *gin.Context) {
	in, img, done, valid := productForm(c)
	defer done()
	if !valid {
		return
	}
	p, err := ctl.Catalog.Create(c.Request.Context(), in, img)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product created", "data": p})
}

func (ctl *Controller) UpdateProduct(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	in, img, done, valid := productForm(c)
	defer done()
	if !valid {
		return
	}
	p, err := ctl.Catalog.Update(c.Request.Context(), id, in, img)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product updated", "data": p})
}

// DeleteProduct hides the product; past orders keep referring to it.
func (ctl *Controller) DeleteProduct(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if _, err := ctl.Catalog.Delete(c.Request.Context(), id); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted"})
}

func (ctl *Controller) BulkAddProducts(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Excel file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unable to open Excel file"})
		return
	}
	defer file.Close()

	res, err := ctl.Catalog.Import(c.Request.Context(), file)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			ctl.respondError(c, err)
			return
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "skipped": res.Skipped})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Bulk product upload successful",
		"count":   res.Count,
		"skipped": res.Skipped,
	})
}

func (ctl *Controller) ResetDailyStock(c *gin.Context) {
	n, err := ctl.Catalog.ResetDailyStock(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
}
