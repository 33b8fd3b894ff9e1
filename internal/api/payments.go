package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// CreatePayment records a payment against a confirmed invoice
// POST /payments
func (h *Handler) CreatePayment(c *gin.Context) {
	var req services.PaymentInput
	if !bindJSON(c, &req) {
		return
	}

	userID := middleware.UserID(c)
	payment, err := h.Payments.Record(c.Request.Context(), req, &userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Payment recorded successfully", payment)
}

// ListPayments lists payments; portal users see payments on their own invoices
// GET /payments?invoice_id=
func (h *Handler) ListPayments(c *gin.Context) {
	var filter services.PaymentFilter
	if !bindQuery(c, &filter) {
		return
	}
	if isPortal(c) {
		filter.CustomerID = middleware.UserID(c)
	}

	payments, err := h.Payments.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, payments)
}

// GET /payments/:id
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	payment, err := h.Payments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if isPortal(c) {
		owner, err := h.Payments.InvoiceOwner(c.Request.Context(), payment.InvoiceID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !canAccess(c, owner) {
			forbidden(c)
			return
		}
	}
	response.SuccessJSON(c, payment)
}
