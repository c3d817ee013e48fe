package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restobar/gateway"
	"restobar/model"
)

func (ctl *Controller) BillSummary(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	sum, err := ctl.Payment.Summary(c.Request.Context(), callerID(c), table)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, sum)
}

func (ctl *Controller) ConfirmPayment(c *gin.Context) {
	table, valid := intParam(c, "number")
	if !valid {
		return
	}
	type Request struct {
		Method   model.PaymentMethod `json:"method" binding:"required"`
		Tendered *decimal.Decimal    `json:"tendered"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Payment method is required")
		return
	}
	receipt, err := ctl.Payment.Confirm(c.Request.Context(), callerID(c), table, req.Method, req.Tendered)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, receipt)
}

func (ctl *Controller) CashStatus(c *gin.Context) {
	st, err := ctl.Payment.Status(c.Request.Context(), callerID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, st)
}

func (ctl *Controller) OpenCash(c *gin.Context) {
	type Request struct {
		Opening decimal.Decimal `json:"opening_amount"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Opening amount is required")
		return
	}
	cs, err := ctl.Payment.OpenCash(c.Request.Context(), callerID(c), req.Opening)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": cs})
}

func (ctl *Controller) CloseCash(c *gin.Context) {
	type Request struct {
		Declared decimal.Decimal `json:"closing_amount"`
		Notes    string          `json:"notes"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Closing amount is required")
		return
	}
	cs, err := ctl.Payment.CloseCash(c.Request.Context(), callerID(c), req.Declared, req.Notes)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cs, "variance": cs.Variance()})
}

// CashSessions is the admin view of every till. Query: cashier_id,
// status=open|closed, from, to.
func (ctl *Controller) CashSessions(c *gin.Context) {
	var q gateway.CashSessionQuery
	if raw := c.Query("cashier_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid cashier_id")
			return
		}
		q.CashierID = &id
	}
	switch status := model.CashSessionStatus(c.Query("status")); status {
	case "", model.CashOpen, model.CashClosed:
		q.Status = status
	default:
		badRequest(c, "Invalid status")
		return
	}
	from, to, valid := dateRange(c)
	if !valid {
		return
	}
	q.From, q.To = from, to

	sessions, err := ctl.Payment.Sessions(c.Request.Context(), q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, sessions)
}
