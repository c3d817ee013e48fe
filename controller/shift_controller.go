package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restobar/gateway"
)

func (ctl *Controller) CurrentShift(c *gin.Context) {
	w, err := ctl.Shift.Current(c.Request.Context(), callerID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "active": w != nil, "data": w})
}

func (ctl *Controller) StartShift(c *gin.Context) {
	w, err := ctl.Shift.Start(c.Request.Context(), callerID(c), callerRole(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, w)
}

func (ctl *Controller) EndShift(c *gin.Context) {
	w, err := ctl.Shift.End(c.Request.Context(), callerID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, w)
}

// StaffMonitor lists work sessions. Query: user_id, status=active, from and
// to as dates.
func (ctl *Controller) StaffMonitor(c *gin.Context) {
	var q gateway.WorkSessionQuery
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid user_id")
			return
		}
		q.UserID = &id
	}
	q.ActiveOnly = c.Query("status") == "active"
	from, to, valid := dateRange(c)
	if !valid {
		return
	}
	q.From, q.To = from, to

	sessions, err := ctl.Shift.Monitor(c.Request.Context(), q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, sessions)
}

// dateRange parses optional from/to query dates; to is inclusive.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.ParseInLocation("2006-01-02", raw, time.Local); err != nil {
			badRequest(c, "Invalid from date")
			return from, to, false
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.ParseInLocation("2006-01-02", raw, time.Local); err != nil {
			badRequest(c, "Invalid to date")
			return from, to, false
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, true
}
