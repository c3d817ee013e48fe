package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restobar/gateway"
	"restobar/model"
	"restobar/order"
)

type cartView struct {
	Lines []order.Line `json:"lines"`
	Total string       `json:"total"`
	Count int          `json:"count"`
}

func viewCart(cart *order.Cart) cartView {
	return cartView{Lines: cart.Lines, Total: cart.Total().StringFixed(2), Count: cart.Count()}
}

func (ctl *Controller) GetDraft(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	if err := ctl.Orders.CheckCanOrder(c.Request.Context(), callerRole(c)); err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, viewCart(ctl.Orders.Draft(callerID(c), table)))
}

func (ctl *Controller) AddDraftLine(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	type Request struct {
		ProductID uint `json:"product_id" binding:"required"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Product ID is required")
		return
	}
	cart, err := ctl.Orders.AddToDraft(c.Request.Context(), callerID(c), table, req.ProductID)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, viewCart(cart))
}

// UpdateDraftLine changes the note and/or the quantity of a draft line.
// Quantity is a delta and never takes a line below one.
func (ctl *Controller) UpdateDraftLine(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	type Request struct {
		Note  *string `json:"note"`
		Delta int     `json:"delta"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	user, line := callerID(c), c.Param("line")

	cart := ctl.Orders.Draft(user, table)
	var err error
	if req.Note != nil {
		if cart, err = ctl.Orders.SetDraftNote(user, table, line, *req.Note); err != nil {
			ctl.respondError(c, err)
			return
		}
	}
	if req.Delta != 0 {
		if cart, err = ctl.Orders.UpdateDraftQuantity(user, table, line, req.Delta); err != nil {
			ctl.respondError(c, err)
			return
		}
	}
	ok(c, viewCart(cart))
}

func (ctl *Controller) RemoveDraftLine(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	cart, err := ctl.Orders.RemoveFromDraft(callerID(c), table, c.Param("line"))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, viewCart(cart))
}

func (ctl *Controller) ClearDraft(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	ctl.Orders.ClearDraft(callerID(c), table)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SubmitOrder sends lines to the kitchen and bar. Lines in the body are
// submitted as given; without them the caller's draft for the table is used.
func (ctl *Controller) SubmitOrder(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	type Line struct {
		ProductID uint   `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
		Note      string `json:"note"`
	}
	type Request struct {
		Lines []Line `json:"lines" binding:"dive"`
	}
	var req Request
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid order lines")
			return
		}
	}

	var (
		res gateway.PlaceResult
		err error
	)
	if len(req.Lines) == 0 {
		res, err = ctl.Orders.SubmitDraft(c.Request.Context(), table, callerID(c), callerRole(c))
	} else {
		cart := order.NewCart()
		for _, l := range req.Lines {
			cart.Lines = append(cart.Lines, order.Line{
				Product:  model.Product{ID: l.ProductID},
				Quantity: l.Quantity,
				Note:     l.Note,
			})
		}
		res, err = ctl.Orders.Submit(c.Request.Context(), table, callerID(c), callerRole(c), cart)
	}
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

func (ctl *Controller) CancelOrder(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	type Request struct {
		Reason string `json:"reason"`
	}
	var req Request
	_ = c.ShouldBindJSON(&req)

	o, err := ctl.Orders.Cancel(c.Request.Context(), id, callerID(c), req.Reason)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, o)
}

func (ctl *Controller) MyOrders(c *gin.Context) {
	orders, err := ctl.Orders.WaiterOrders(c.Request.Context(), callerID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, orders)
}

func (ctl *Controller) ActiveOrders(c *gin.Context) {
	orders, err := ctl.Orders.ActiveOrders(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, orders)
}

// NoteTags lists the quick note tags for an area (kitchen, bar) plus the
// global ones.
func (ctl *Controller) NoteTags(c *gin.Context) {
	ok(c, order.Tags(model.ProductionArea(c.Query("area"))))
}
