package api

import (
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /reports/active-subscriptions
func (h *Handler) ActiveSubscriptionsReport(c *gin.Context) {
	report, err := h.Reports.ActiveSubscriptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, report)
}

// RevenueReport sums paid invoices issued inside the range
// GET /reports/revenue?start_date=2024-01-01&end_date=2024-01-31
func (h *Handler) RevenueReport(c *gin.Context) {
	var r services.DateRange
	if !bindQuery(c, &r) {
		return
	}

	report, err := h.Reports.Revenue(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, report)
}

// PaymentsSummaryReport groups payments by method
// GET /reports/payments-summary?start_date=&end_date=
func (h *Handler) PaymentsSummaryReport(c *gin.Context) {
	var r services.DateRange
	if !bindQuery(c, &r) {
		return
	}

	report, err := h.Reports.PaymentsSummary(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, report)
}

// GET /reports/overdue-invoices
func (h *Handler) OverdueInvoicesReport(c *gin.Context) {
	report, err := h.Reports.OverdueInvoices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, report)
}

// GET /reports/dashboard
func (h *Handler) DashboardReport(c *gin.Context) {
	report, err := h.Reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, report)
}
