package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) Floor(c *gin.Context) {
	floor, err := ctl.Tables.Floor(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, floor)
}

// OpenTable tells the terminal which screen a tap on the table leads to.
func (ctl *Controller) OpenTable(c *gin.Context) {
	number, valid := intParam(c, "number")
	if !valid {
		return
	}
	dest, table, err := ctl.Tables.Route(c.Request.Context(), callerRole(c), number)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "destination": dest, "table": table})
}

func (ctl *Controller) RequestBill(c *gin.Context) {
	number, valid := intParam(c, "number")
	if !valid {
		return
	}
	table, err := ctl.Orders.RequestBill(c.Request.Context(), number)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, table)
}

func (ctl *Controller) AddTable(c *gin.Context) {
	type Request struct {
		Number   int `json:"number" binding:"required"`
		Capacity int `json:"capacity"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Table number is required")
		return
	}
	table, err := ctl.Tables.Create(c.Request.Context(), req.Number, req.Capacity)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": table})
}

func (ctl *Controller) UpdateTable(c *gin.Context) {
	number, valid := intParam(c, "number")
	if !valid {
		return
	}
	type Request struct {
		Capacity int `json:"capacity" binding:"required"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Capacity is required")
		return
	}
	table, err := ctl.Tables.SetCapacity(c.Request.Context(), number, req.Capacity)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, table)
}

func (ctl *Controller) DeleteTable(c *gin.Context) {
	number, valid := intParam(c, "number")
	if !valid {
		return
	}
	if err := ctl.Tables.Delete(c.Request.Context(), number); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Table deleted"})
}
