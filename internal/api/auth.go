package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// RefreshRequest carries the refresh token to exchange
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Signup registers a portal account
// POST /auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var req services.SignupInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Account created successfully", user)
}

// Login exchanges credentials for a token pair
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, result)
}

// RefreshToken issues a new pair from a refresh token
// POST /auth/refresh
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, result)
}

// ForgotPassword always answers the same way so it never reveals whether an account exists
// POST /auth/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := h.Auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "If the email exists, a reset link has been sent")
}

// ResetPassword sets a new password using a reset token
// POST /auth/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.Auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Password has been reset successfully")
}

// Me returns the authenticated account
// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Users.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, user)
}
