package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// TransitionRequest names the lifecycle action to apply
type TransitionRequest struct {
	Action string `json:"action"`
}

// ListSubscriptions lists subscriptions; portal users see only their own
// GET /subscriptions?status=&customer_id=&skip=&limit=
func (h *Handler) ListSubscriptions(c *gin.Context) {
	var filter services.SubscriptionFilter
	if !bindQuery(c, &filter) {
		return
	}
	if isPortal(c) {
		filter.CustomerID = middleware.UserID(c)
	}

	subs, err := h.Subscriptions.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, subs)
}

// CreateSubscription opens a draft subscription
// POST /subscriptions
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req services.SubscriptionInput
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.Subscriptions.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Subscription created successfully", sub)
}

// GetSubscription returns a subscription with its lines
// GET /subscriptions/:id
func (h *Handler) GetSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	sub, err := h.Subscriptions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canAccess(c, sub.CustomerID) {
		forbidden(c)
		return
	}
	response.SuccessJSON(c, sub)
}

// UpdateSubscription edits header fields while the subscription is a draft or quotation
// PUT /subscriptions/:id
func (h *Handler) UpdateSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SubscriptionUpdate
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.Subscriptions.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, sub)
}

// DeleteSubscription removes a draft
// DELETE /subscriptions/:id
func (h *Handler) DeleteSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Subscriptions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Subscription deleted")
}

// AddSubscriptionLine adds a product line
// POST /subscriptions/:id/lines
func (h *Handler) AddSubscriptionLine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.SubscriptionLineInput
	if !bindJSON(c, &req) {
		return
	}

	line, err := h.Subscriptions.AddLine(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Line added", line)
}

// UpdateSubscriptionLine changes quantity, price, tax or discount of a line
// PUT /subscriptions/:id/lines/:line_id
func (h *Handler) UpdateSubscriptionLine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lineID, ok := paramID(c, "line_id")
	if !ok {
		return
	}
	var req services.SubscriptionLineUpdate
	if !bindJSON(c, &req) {
		return
	}

	line, err := h.Subscriptions.UpdateLine(c.Request.Context(), id, lineID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, line)
}

// DeleteSubscriptionLine removes a line
// DELETE /subscriptions/:id/lines/:line_id
func (h *Handler) DeleteSubscriptionLine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lineID, ok := paramID(c, "line_id")
	if !ok {
		return
	}

	if err := h.Subscriptions.DeleteLine(c.Request.Context(), id, lineID); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Line deleted")
}

// TransitionSubscription applies a lifecycle action
// POST /subscriptions/:id/transition {"action": "confirm"}
func (h *Handler) TransitionSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.Subscriptions.Transition(c.Request.Context(), id, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, sub)
}

// RenewSubscription starts a renewal draft from a closed subscription
// POST /subscriptions/:id/renew
func (h *Handler) RenewSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	sub, err := h.Subscriptions.Renew(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Renewal created", sub)
}

// UpsellSubscription starts an upsell draft from an active subscription
// POST /subscriptions/:id/upsell
func (h *Handler) UpsellSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	sub, err := h.Subscriptions.Upsell(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Upsell created", sub)
}

// SubscriptionHistory lists the renewal and upsell chain of a subscription
// GET /subscriptions/:id/history
func (h *Handler) SubscriptionHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	sub, err := h.Subscriptions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canAccess(c, sub.CustomerID) {
		forbidden(c)
		return
	}

	history, err := h.Subscriptions.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, history)
}
