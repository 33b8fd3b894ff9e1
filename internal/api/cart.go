package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

// GetCart returns the caller's cart with names and amounts resolved
// GET /cart
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.Carts.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, cart)
}

// AddCartItem adds a product, merging with an identical line
// POST /cart/items
func (h *Handler) AddCartItem(c *gin.Context) {
	var req services.CartItemInput
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.Carts.AddItem(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, "Item added to cart", item)
}

// PUT /cart/items/:id
func (h *Handler) UpdateCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.CartItemUpdate
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.Carts.UpdateItem(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessJSON(c, item)
}

// DELETE /cart/items/:id
func (h *Handler) RemoveCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Carts.RemoveItem(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Item removed from cart")
}

// DELETE /cart
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.Carts.Clear(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.MessageJSON(c, "Cart cleared")
}

// PlaceOrder turns the cart into an active subscription, a confirmed invoice and its payment
// POST /checkout
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.CheckoutInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.Checkout.Checkout(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.CreatedJSON(c, result.Message, result)
}
