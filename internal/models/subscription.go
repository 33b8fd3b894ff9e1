package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionDraft     SubscriptionStatus = "draft"
	SubscriptionQuotation SubscriptionStatus = "quotation"
	SubscriptionConfirmed SubscriptionStatus = "confirmed"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionClosed    SubscriptionStatus = "closed"
)

// Valid reports whether s is a known status
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionDraft, SubscriptionQuotation, SubscriptionConfirmed,
		SubscriptionActive, SubscriptionPaused, SubscriptionClosed:
		return true
	}
	return false
}

// Editable reports whether header fields and lines may still change
func (s SubscriptionStatus) Editable() bool {
	return s == SubscriptionDraft || s == SubscriptionQuotation
}

// Subscription is a customer's commitment to a recurring plan
type Subscription struct {
	BaseModel

	SubscriptionNumber string             `json:"subscription_number" gorm:"size:32;uniqueIndex;not null"`
	CustomerID         uint               `json:"customer_id" gorm:"not null;index"`
	PlanID             uint               `json:"plan_id" gorm:"not null;index"`
	SalespersonID      *uint              `json:"salesperson_id"`
	ParentID           *uint              `json:"parent_id" gorm:"index"` // source of a renewal or upsell
	Status             SubscriptionStatus `json:"status" gorm:"size:20;not null;index"`

	// Dates
	StartDate       time.Time  `json:"start_date" gorm:"type:date;not null"`
	ExpirationDate  *time.Time `json:"expiration_date" gorm:"type:date"`
	NextInvoiceDate *time.Time `json:"next_invoice_date" gorm:"type:date"`

	PaymentTerms string `json:"payment_terms" gorm:"size:100"`
	Notes        string `json:"notes" gorm:"type:text"`

	Plan  *RecurringPlan     `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	Lines []SubscriptionLine `json:"lines"`
}

// SubscriptionLine is one product on a subscription
type SubscriptionLine struct {
	BaseModel

	SubscriptionID uint            `json:"subscription_id" gorm:"not null;index"`
	ProductID      uint            `json:"product_id" gorm:"not null;index"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TaxID          *uint           `json:"tax_id"`
	DiscountID     *uint           `json:"discount_id"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"` // quantity x unit_price

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// LineAmount is quantity times unit price, rounded to cents
func LineAmount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return Money(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}
