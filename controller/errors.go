package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"restobar/auth"
	"restobar/catalog"
	"restobar/gateway"
	"restobar/order"
	"restobar/payment"
	"restobar/production"
	"restobar/report"
	"restobar/staff"
	"restobar/tables"
	"restobar/utils"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{gateway.ErrNotFound, http.StatusNotFound},
	{auth.ErrProfileNotFound, http.StatusNotFound},
	{auth.ErrUserNotFound, http.StatusNotFound},
	{order.ErrLineNotFound, http.StatusNotFound},

	{auth.ErrWrongPassword, http.StatusUnauthorized},
	{auth.ErrSessionSuperseded, http.StatusUnauthorized},
	{auth.ErrInactive, http.StatusForbidden},

	{order.ErrCashierCannotOrder, http.StatusForbidden},
	{tables.ErrCashierCannotOrder, http.StatusForbidden},
	{production.ErrNotPermitted, http.StatusForbidden},
	{staff.ErrSelfDelete, http.StatusForbidden},

	{payment.ErrCashRegisterClosed, http.StatusConflict},
	{order.ErrNoOpenCashRegister, http.StatusConflict},
	{tables.ErrNoOpenCashRegister, http.StatusConflict},
	{production.ErrInvalidTransition, http.StatusConflict},
	{gateway.ErrDuplicate, http.StatusConflict},
	{gateway.ErrTableBusy, http.StatusConflict},
	{gateway.ErrNoActiveOrder, http.StatusConflict},
	{gateway.ErrOrderClosed, http.StatusConflict},
	{gateway.ErrProductUnavailable, http.StatusConflict},
	{gateway.ErrOutOfStock, http.StatusConflict},
	{gateway.ErrTotalChanged, http.StatusConflict},
	{gateway.ErrCashSessionOpen, http.StatusConflict},
	{gateway.ErrNoCashSession, http.StatusConflict},
	{gateway.ErrShiftActive, http.StatusConflict},
	{gateway.ErrNoActiveShift, http.StatusConflict},
	{gateway.ErrStatusConflict, http.StatusConflict},
	{gateway.ErrProfileInUse, http.StatusConflict},

	{order.ErrEmptyCart, http.StatusBadRequest},
	{payment.ErrInvalidMethod, http.StatusBadRequest},
	{payment.ErrInsufficientTender, http.StatusBadRequest},
	{payment.ErrNegativeAmount, http.StatusBadRequest},
	{catalog.ErrInvalidProduct, http.StatusBadRequest},
	{catalog.ErrInvalidImage, http.StatusBadRequest},
	{catalog.ErrEmptySheet, http.StatusBadRequest},
	{catalog.ErrNoValidRows, http.StatusBadRequest},
	{staff.ErrInvalidProfile, http.StatusBadRequest},
	{staff.ErrWeakPassword, http.StatusBadRequest},
	{staff.ErrInvalidCall, http.StatusBadRequest},
	{tables.ErrInvalidTable, http.StatusBadRequest},
	{report.ErrInvalidRange, http.StatusBadRequest},

	{utils.ErrTimeout, http.StatusGatewayTimeout},
}

// StatusFor maps a domain error to an HTTP status. Unknown errors are
// internal.
func StatusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Internal errors are logged and
// hidden from the client.
func (ctl *Controller) respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	body := gin.H{"success": false, "error": err.Error()}
	switch {
	case errors.Is(err, payment.ErrCashRegisterClosed):
		body["redirect"] = "/cash"
	case errors.Is(err, auth.ErrSessionSuperseded):
		body["code"] = utils.ErrSessionSuperseded.Error()
	case status == http.StatusInternalServerError:
		ctl.logger().Error(utils.RequestID(c), c.FullPath(), "request failed", err)
		body["error"] = "Internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
