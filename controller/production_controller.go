package controller

import (
	"context"

	"github.com/gin-gonic/gin"

	"restobar/model"
)

// screenArea resolves the production area a request is about. Kitchen and
// bar staff are pinned to their own area; others may pass ?area=.
func screenArea(c *gin.Context) (model.ProductionArea, bool) {
	switch callerRole(c) {
	case model.RoleKitchen:
		return model.AreaKitchen, true
	case model.RoleBar:
		return model.AreaBar, true
	}
	area := model.ProductionArea(c.Query("area"))
	if area != "" && !area.Valid() {
		badRequest(c, "Invalid area")
		return "", false
	}
	return area, true
}

func (ctl *Controller) PendingQueue(c *gin.Context) {
	area, valid := screenArea(c)
	if !valid {
		return
	}
	groups, err := ctl.Production.Pending(c.Request.Context(), area)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, groups)
}

func (ctl *Controller) ReadyHistory(c *gin.Context) {
	area, valid := screenArea(c)
	if !valid {
		return
	}
	items, err := ctl.Production.History(c.Request.Context(), area)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, items)
}

func (ctl *Controller) MarkReady(c *gin.Context) {
	ctl.transitionItem(c, ctl.Production.MarkReady)
}

func (ctl *Controller) StartPreparing(c *gin.Context) {
	ctl.transitionItem(c, ctl.Production.StartPreparing)
}

func (ctl *Controller) UndoReady(c *gin.Context) {
	ctl.transitionItem(c, ctl.Production.Undo)
}

type itemTransition func(ctx context.Context, role model.UserRole, id uint) (model.OrderItem, error)

func (ctl *Controller) transitionItem(c *gin.Context, fn itemTransition) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	item, err := fn(c.Request.Context(), callerRole(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, item)
}
