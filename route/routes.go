package route

import (
	"github.com/gin-gonic/gin"

	"restobar/controller"
	"restobar/model"
	"restobar/utils"
)

func role(r model.UserRole) string { return string(r) }

// Setup registers every API route on the router.
func Setup(router *gin.Engine, ctl *controller.Controller, tokens *utils.Tokens) {
	api := router.Group("/api")
	api.POST("/auth/login", ctl.Login)
	api.POST("/auth/refresh-token", ctl.RefreshToken)

	authed := api.Group("")
	authed.Use(utils.AuthMiddleware(tokens, ctl.Auth))
	{
		authed.GET("/auth/me", ctl.Me)
		authed.POST("/auth/logout", ctl.Logout)

		authed.GET("/shift/current", ctl.CurrentShift)
		authed.POST("/shift/start", ctl.StartShift)
		authed.POST("/shift/end", ctl.EndShift)
	}

	admin := model.RoleAdmin
	cashier := model.RoleCashier
	waiter := model.RoleWaiter
	kitchen := model.RoleKitchen
	bar := model.RoleBar

	// Everything below needs an active shift.
	onShift := authed.Group("")
	onShift.Use(ctl.Shift.Gate())
	{
		floor := onShift.Group("/tables")
		floor.Use(utils.RequireRoles(role(admin), role(cashier), role(waiter)))
		floor.GET("", ctl.Floor)
		floor.POST("/:number/open", ctl.OpenTable)
		floor.POST("/:number/request-bill", ctl.RequestBill)

		orders := onShift.Group("")
		orders.Use(utils.RequireRoles(role(admin), role(waiter)))
		orders.GET("/tables/:number/draft", ctl.GetDraft)
		orders.POST("/tables/:number/draft/lines", ctl.AddDraftLine)
		orders.PATCH("/tables/:number/draft/lines/:line", ctl.UpdateDraftLine)
		orders.DELETE("/tables/:number/draft/lines/:line", ctl.RemoveDraftLine)
		orders.DELETE("/tables/:number/draft", ctl.ClearDraft)
		orders.POST("/tables/:number/orders", ctl.SubmitOrder)
		orders.GET("/orders/mine", ctl.MyOrders)
		orders.GET("/orders/note-tags", ctl.NoteTags)

		onShift.GET("/orders/active", utils.RequireRoles(role(admin), role(cashier), role(waiter)), ctl.ActiveOrders)
		onShift.POST("/orders/:id/cancel", utils.RequireRoles(role(admin), role(cashier)), ctl.CancelOrder)

		prod := onShift.Group("/production")
		prod.Use(utils.RequireRoles(role(admin), role(kitchen), role(bar)))
		prod.GET("/pending", ctl.PendingQueue)
		prod.GET("/ready", ctl.ReadyHistory)
		prod.POST("/items/:id/preparing", ctl.StartPreparing)
		prod.POST("/items/:id/ready", ctl.MarkReady)
		prod.POST("/items/:id/undo", ctl.UndoReady)

		till := onShift.Group("")
		till.Use(utils.RequireRoles(role(admin), role(cashier)))
		till.GET("/tables/:number/bill", ctl.BillSummary)
		till.POST("/tables/:number/pay", ctl.ConfirmPayment)
		till.GET("/cash/status", ctl.CashStatus)
		till.POST("/cash/open", ctl.OpenCash)
		till.POST("/cash/close", ctl.CloseCash)
		till.GET("/reports/daily", ctl.DailySales)

		onShift.GET("/products", ctl.ListProducts)
		onShift.GET("/products/:id", ctl.GetProduct)
		onShift.GET("/staff/waiters", ctl.Waiters)
		onShift.POST("/calls", utils.RequireRoles(role(admin), role(cashier), role(kitchen), role(bar)), ctl.CallWaiter)
		onShift.GET("/calls/mine", utils.RequireRoles(role(waiter)), ctl.MyCalls)

		onShift.GET("/stream/production", ctl.ProductionStream)
		onShift.GET("/stream/calls", utils.RequireRoles(role(waiter)), ctl.CallStream)
	}

	adminGroup := authed.Group("/admin")
	adminGroup.Use(utils.RequireRoles(role(admin)))
	{
		adminGroup.GET("/users", ctl.ListUsers)
		adminGroup.POST("/users", ctl.CreateUser)
		adminGroup.PUT("/users/:id", ctl.UpdateUser)
		adminGroup.POST("/users/:id/reset-password", ctl.ResetPassword)
		adminGroup.DELETE("/users/:id", ctl.DeleteUser)
		adminGroup.GET("/users/online", ctl.OnlineUsers)

		adminGroup.GET("/staff/monitor", ctl.StaffMonitor)
		adminGroup.GET("/cash/sessions", ctl.CashSessions)
		adminGroup.GET("/reports/summary", ctl.SalesReport)
		adminGroup.GET("/reports/export", ctl.ExportReport)

		adminGroup.POST("/tables", ctl.AddTable)
		adminGroup.PUT("/tables/:number", ctl.UpdateTable)
		adminGroup.DELETE("/tables/:number", ctl.DeleteTable)

		adminGroup.POST("/products", ctl.AddProduct)
		adminGroup.POST("/products/excel", ctl.BulkAddProducts)
		adminGroup.PUT("/products/:id", ctl.UpdateProduct)
		adminGroup.DELETE("/products/:id", ctl.DeleteProduct)
		adminGroup.POST("/products/reset-stock", ctl.ResetDailyStock)
	}
}
