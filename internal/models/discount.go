package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Discount is a price reduction looked up by its name (the code)
type Discount struct {
	BaseModel

	Name         string          `json:"name" gorm:"size:100;uniqueIndex;not null"`
	DiscountType DiscountType    `json:"discount_type" gorm:"size:20;not null"`
	Value        decimal.Decimal `json:"value" gorm:"type:decimal(12,2);not null"`
	MinPurchase  decimal.Decimal `json:"min_purchase" gorm:"type:decimal(12,2);not null"`
	MinQuantity  int             `json:"min_quantity" gorm:"not null"`
	StartDate    *time.Time      `json:"start_date" gorm:"type:date"`
	EndDate      *time.Time      `json:"end_date" gorm:"type:date"`
	LimitUsage   *int            `json:"limit_usage"` // nil means unlimited
	UsageCount   int             `json:"usage_count" gorm:"not null"`
	IsActive     bool            `json:"is_active" gorm:"not null;index"`

	// Empty scope means every product
	Products []Product `json:"products,omitempty" gorm:"many2many:discount_products"`
}

// InWindow reports whether day falls inside the optional date window
func (d Discount) InWindow(day time.Time) bool {
	day = DateOf(day)
	if d.StartDate != nil && day.Before(DateOf(*d.StartDate)) {
		return false
	}
	if d.EndDate != nil && day.After(DateOf(*d.EndDate)) {
		return false
	}
	return true
}

// Exhausted reports whether the usage cap has been reached
func (d Discount) Exhausted() bool {
	return d.LimitUsage != nil && d.UsageCount >= *d.LimitUsage
}

// Usable combines the active flag, the window and the usage cap
func (d Discount) Usable(day time.Time) bool {
	return d.IsActive && d.InWindow(day) && !d.Exhausted()
}

// AppliesTo reports whether productID is inside the discount's scope
func (d Discount) AppliesTo(productID uint) bool {
	if len(d.Products) == 0 {
		return true
	}
	for _, p := range d.Products {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// AmountFor computes the reduction on base, never more than base itself
func (d Discount) AmountFor(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch d.DiscountType {
	case DiscountPercentage:
		amount = base.Mul(d.Value).Div(hundred)
	default:
		amount = d.Value
	}
	amount = Money(amount)
	if amount.GreaterThan(base) {
		return base
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
