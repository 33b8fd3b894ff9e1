package models

import (
	"github.com/shopspring/decimal"
)

// Cart is a user's basket, created on first access
type Cart struct {
	BaseModel

	UserID uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Items  []CartItem `json:"items"`
}

// CartItem is unique per (product, variant, plan) within a cart
type CartItem struct {
	BaseModel

	CartID    uint            `json:"cart_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null"`
	VariantID *uint           `json:"variant_id"`
	PlanID    *uint           `json:"plan_id"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
}
