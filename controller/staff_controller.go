package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restobar/gateway"
	"restobar/model"
	"restobar/staff"
)

func (ctl *Controller) ListUsers(c *gin.Context) {
	q := gateway.ProfileQuery{
		Role:       model.UserRole(c.Query("role")),
		ActiveOnly: c.Query("active") == "true",
	}
	users, err := ctl.Staff.List(c.Request.Context(), q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, users)
}

// Waiters lists active waiters for the call dialog.
func (ctl *Controller) Waiters(c *gin.Context) {
	users, err := ctl.Staff.List(c.Request.Context(), gateway.ProfileQuery{Role: model.RoleWaiter, ActiveOnly: true})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	type waiter struct {
		ID       string `json:"id"`
		FullName string `json:"full_name"`
	}
	out := make([]waiter, 0, len(users))
	for _, u := range users {
		out = append(out, waiter{ID: u.ID.String(), FullName: u.FullName})
	}
	ok(c, out)
}

func (ctl *Controller) CreateUser(c *gin.Context) {
	var in staff.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, err := ctl.Staff.Create(c.Request.Context(), in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": p})
}

func (ctl *Controller) UpdateUser(c *gin.Context) {
	id, valid := uuidParam(c, "id")
	if !valid {
		return
	}
	var in staff.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	p, err := ctl.Staff.Update(c.Request.Context(), id, in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, p)
}

func (ctl *Controller) ResetPassword(c *gin.Context) {
	id, valid := uuidParam(c, "id")
	if !valid {
		return
	}
	type Request struct {
		Password string `json:"password" binding:"required"`
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Password is required")
		return
	}
	if err := ctl.Staff.ResetPassword(c.Request.Context(), id, req.Password); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated"})
}

func (ctl *Controller) DeleteUser(c *gin.Context) {
	id, valid := uuidParam(c, "id")
	if !valid {
		return
	}
	if err := ctl.Staff.Delete(c.Request.Context(), callerID(c), id); err != nil {
		ctl.respondError(c, err)
		return
	}
	if ctl.Presence != nil {
		ctl.Presence.Drop(id)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted"})
}

func (ctl *Controller) CallWaiter(c *gin.Context) {
	var in staff.CallInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	call, err := ctl.Staff.CallWaiter(c.Request.Context(), callerID(c), callerRole(c), in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": call})
}

func (ctl *Controller) MyCalls(c *gin.Context) {
	calls, err := ctl.Staff.CallsFor(c.Request.Context(), callerID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, calls)
}

func (ctl *Controller) OnlineUsers(c *gin.Context) {
	if ctl.Presence == nil {
		ok(c, []staff.OnlineUser{})
		return
	}
	ok(c, ctl.Presence.Online())
}
