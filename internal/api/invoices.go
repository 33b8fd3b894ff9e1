package api

import (
	"context"
	"net/http"
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/models"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// GenerateInvoice bills a subscription into a new draft invoice
// POST /invoices/generate/:subscription_id
func (h *Handler) GenerateInvoice(c *gin.Context) {
	subID, ok := paramID(c, "subscription_id")
	if !ok {
		return
	}

	invoice, err := h.Invoices.Generate(c.Request.Context(), subID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Invoice "+invoice.InvoiceNumber+" generated", invoice)
}

// ListInvoices lists invoices; portal users see only their own
// GET /invoices?status=&customer_id=&subscription_id=
func (h *Handler) ListInvoices(c *gin.Context) {
	var filter services.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	if isPortal(c) {
		filter.CustomerID = middleware.UserID(c)
	}

	invoices, err := h.Invoices.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, invoices)
}

// ownedInvoice loads the invoice in :id and checks the caller may see it
func (h *Handler) ownedInvoice(c *gin.Context) (*models.Invoice, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	invoice, err := h.Invoices.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !canAccess(c, invoice.CustomerID) {
		forbidden(c)
		return nil, false
	}
	return invoice, true
}

// GetInvoice returns an invoice with its lines and payments
// GET /invoices/:id
func (h *Handler) GetInvoice(c *gin.Context) {
	invoice, ok := h.ownedInvoice(c)
	if !ok {
		return
	}
	response.SuccessJSON(c, invoice)
}

func (h *Handler) DeleteInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Invoices.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Invoice deleted")
}

// invoiceAction runs one of the status changes on the invoice in :id
func invoiceAction(c *gin.Context, action func(context.Context, uint) (*models.Invoice, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	invoice, err := action(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, invoice)
}

// ConfirmInvoice locks a draft for payment
// POST /invoices/:id/confirm
func (h *Handler) ConfirmInvoice(c *gin.Context) {
	invoiceAction(c, h.Invoices.Confirm)
}

// POST /invoices/:id/cancel
func (h *Handler) CancelInvoice(c *gin.Context) {
	invoiceAction(c, h.Invoices.Cancel)
}

// InvoiceBackToDraft reopens a confirmed or cancelled invoice
// POST /invoices/:id/back-to-draft
func (h *Handler) InvoiceBackToDraft(c *gin.Context) {
	invoiceAction(c, h.Invoices.BackToDraft)
}

// SendInvoice marks the invoice sent and emails it when mail is configured
// POST /invoices/:id/send
func (h *Handler) SendInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	message, err := h.Invoices.Send(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	invoice, err := h.Invoices.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, response.Response{Success: true, Message: message, Data: invoice})
}

// PayInvoice records a payment against the invoice, defaulting to the open balance
// POST /invoices/:id/pay
func (h *Handler) PayInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.PayInvoiceInput
	if !bindOptionalJSON(c, &req) {
		return
	}

	userID := middleware.UserID(c)
	payment, err := h.Payments.PayInvoice(c.Request.Context(), id, req, &userID)
	if err != nil {
		respondError(c, err)
		return
	}
	invoice, err := h.Invoices.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"invoice": invoice, "payment": payment})
}

// DownloadInvoice serves the plain-text invoice document
// GET /invoices/:id/pdf
func (h *Handler) DownloadInvoice(c *gin.Context) {
	invoice, ok := h.ownedInvoice(c)
	if !ok {
		return
	}

	filename, content, err := h.Invoices.Document(c.Request.Context(), invoice.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/octet-stream", content)
}
