// Package controller holds the gin handlers of the HTTP API.
package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restobar/auth"
	"restobar/catalog"
	"restobar/logger"
	"restobar/model"
	"restobar/order"
	"restobar/payment"
	"restobar/production"
	"restobar/realtime"
	"restobar/report"
	"restobar/shift"
	"restobar/staff"
	"restobar/tables"
	"restobar/utils"
)

// Feed is the change feed the streams listen on.
type Feed interface {
	Subscribe(f realtime.Filter) *realtime.Subscription
}

// Controller carries the services the handlers call into.
type Controller struct {
	Auth       *auth.Service
	Shift      *shift.Service
	Tables     *tables.Service
	Orders     *order.Service
	Production *production.Service
	Payment    *payment.Service
	Reports    *report.Service
	Catalog    *catalog.Service
	Staff      *staff.Service
	Presence   *staff.Presence
	Feed       Feed
	Log        *logger.Logger
}

func (ctl *Controller) logger() *logger.Logger {
	if ctl.Log == nil {
		return logger.Nop()
	}
	return ctl.Log
}

func callerID(c *gin.Context) uuid.UUID {
	return utils.CurrentUserID(c)
}

func callerRole(c *gin.Context) model.UserRole {
	return model.UserRole(utils.CurrentRole(c))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// intParam reads a positive integer path parameter, answering 400 when it
// is malformed.
func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return n, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
