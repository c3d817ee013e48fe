package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restobar/utils"
)

func (ctl *Controller) Login(c *gin.Context) {
	type Request struct {
		Login    string `form:"login" json:"login" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}

	var req Request
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Login and password are required")
		return
	}

	session, err := ctl.Auth.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ctl.logger().Info(utils.RequestID(c), "login", "user "+session.Profile.ID.String()+" signed in")

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
		"profile":       session.Profile,
	})
}

func (ctl *Controller) RefreshToken(c *gin.Context) {
	type Request struct {
		RefreshToken string `form:"refresh_token" json:"refresh_token" binding:"required"`
	}

	var req Request
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Refresh token is required")
		return
	}

	session, err := ctl.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if StatusFor(err) == http.StatusInternalServerError {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
			return
		}
		ctl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  session.AccessToken,
		"refresh_token": session.RefreshToken,
	})
}

func (ctl *Controller) Logout(c *gin.Context) {
	if err := ctl.Auth.Logout(c.Request.Context(), callerID(c), utils.CurrentSessionID(c)); err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me answers within the failsafe window even when the profile store is
// slow.
func (ctl *Controller) Me(c *gin.Context) {
	res, err := ctl.Auth.Me(c.Request.Context(), callerID(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": res.Profile, "loading": res.Loading})
}
