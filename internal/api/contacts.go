package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// ListContacts lists contacts; portal users only get their own
// GET /contacts?user_id=&search=
func (h *Handler) ListContacts(c *gin.Context) {
	var filter services.ContactFilter
	if !bindQuery(c, &filter) {
		return
	}
	if isPortal(c) {
		filter.UserID = middleware.UserID(c)
	}

	contacts, err := h.Contacts.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, contacts)
}

func (h *Handler) CreateContact(c *gin.Context) {
	var req services.ContactInput
	if !bindJSON(c, &req) {
		return
	}

	contact, err := h.Contacts.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Contact created successfully", contact)
}

func (h *Handler) GetContact(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	contact, err := h.Contacts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canAccess(c, contact.UserID) {
		forbidden(c)
		return
	}
	response.SuccessJSON(c, contact)
}

func (h *Handler) UpdateContact(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ContactUpdate
	if !bindJSON(c, &req) {
		return
	}

	contact, err := h.Contacts.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, contact)
}

func (h *Handler) DeleteContact(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Contacts.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Contact deleted")
}
