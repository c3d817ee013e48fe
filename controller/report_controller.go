package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restobar/report"
)

// SalesReport aggregates paid orders. Query: period=today|month|year|custom,
// start and end as dates for custom ranges.
func (ctl *Controller) SalesReport(c *gin.Context) {
	sum, err := ctl.Reports.Summary(c.Request.Context(), report.Period(c.Query("period")), c.Query("start"), c.Query("end"))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, sum)
}

func (ctl *Controller) DailySales(c *gin.Context) {
	d, err := ctl.Reports.Today(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	ok(c, d)
}

func (ctl *Controller) ExportReport(c *gin.Context) {
	name, data, err := ctl.Reports.Export(c.Request.Context(), report.Period(c.Query("period")), c.Query("start"), c.Query("end"))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
