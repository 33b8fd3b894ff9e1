package models

import (
	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductTypeConsumable   ProductType = "consumable"
	ProductTypeService      ProductType = "service"
	ProductTypeSubscription ProductType = "subscription"
)

// Product is a catalog item. Inactive products stay referenced by history.
type Product struct {
	BaseModel

	Name        string          `json:"name" gorm:"size:255;not null;index"`
	ProductType ProductType     `json:"product_type" gorm:"size:20;not null"`
	SalesPrice  decimal.Decimal `json:"sales_price" gorm:"type:decimal(12,2);not null"`
	CostPrice   decimal.Decimal `json:"cost_price" gorm:"type:decimal(12,2);not null"`
	Description string          `json:"description" gorm:"type:text"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`

	Variants []ProductVariant `json:"variants,omitempty"`
}

// ProductVariant adds an attribute/value pair and an extra price to a product
type ProductVariant struct {
	BaseModel

	ProductID  uint            `json:"product_id" gorm:"not null;index"`
	Attribute  string          `json:"attribute" gorm:"size:100;not null"` // e.g. "Color"
	Value      string          `json:"value" gorm:"size:100;not null"`     // e.g. "Red"
	ExtraPrice decimal.Decimal `json:"extra_price" gorm:"type:decimal(12,2);not null"`
}

// Label renders the variant as "attribute: value"
func (v ProductVariant) Label() string {
	return v.Attribute + ": " + v.Value
}
