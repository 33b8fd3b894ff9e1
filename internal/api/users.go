package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/models"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateUser adds a staff account
// POST /users
func (h *Handler) CreateUser(c *gin.Context) {
	var req services.CreateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "User created successfully", user)
}

// ListUsers lists accounts
// GET /users?role=&is_active=&skip=&limit=
func (h *Handler) ListUsers(c *gin.Context) {
	var filter services.UserFilter
	if !bindQuery(c, &filter) {
		return
	}

	users, err := h.Users.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, users)
}

// GetUser returns one account; portal users may only read themselves
// GET /users/:id
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if !canAccess(c, id) {
		forbidden(c)
		return
	}

	user, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, user)
}

// UpdateUser changes an account; only admins may edit others
// PUT /users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	isAdmin := middleware.Role(c) == models.RoleAdmin
	if !isAdmin && middleware.UserID(c) != id {
		forbidden(c)
		return
	}

	var req services.UpdateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Users.Update(c.Request.Context(), id, req, isAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, user)
}

// DeactivateUser disables an account
// DELETE /users/:id
func (h *Handler) DeactivateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Users.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "User deactivated")
}
