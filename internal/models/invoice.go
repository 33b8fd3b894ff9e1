package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceConfirmed InvoiceStatus = "confirmed"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceConfirmed, InvoicePaid, InvoiceCancelled:
		return true
	}
	return false
}

// Invoice is a billing document. The four totals are persisted sums of its lines.
type Invoice struct {
	BaseModel

	InvoiceNumber  string        `json:"invoice_number" gorm:"size:32;uniqueIndex;not null"`
	SubscriptionID uint          `json:"subscription_id" gorm:"not null;index"`
	CustomerID     uint          `json:"customer_id" gorm:"not null;index"`
	Status         InvoiceStatus `json:"status" gorm:"size:20;not null;index"`
	IssueDate      time.Time     `json:"issue_date" gorm:"type:date;not null;index"`
	DueDate        *time.Time    `json:"due_date" gorm:"type:date;index"`
	SentAt         *time.Time    `json:"sent_at"`

	// Totals
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	TaxTotal      decimal.Decimal `json:"tax_total" gorm:"type:decimal(12,2);not null"`
	DiscountTotal decimal.Decimal `json:"discount_total" gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`

	Notes string `json:"notes" gorm:"type:text"`

	Lines    []InvoiceLine `json:"lines"`
	Payments []Payment     `json:"payments,omitempty"`
}

// InvoiceLine is one billed product
type InvoiceLine struct {
	BaseModel

	InvoiceID      uint            `json:"invoice_id" gorm:"not null;index"`
	ProductID      uint            `json:"product_id" gorm:"not null"`
	Description    string          `json:"description" gorm:"size:255"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	TaxID          *uint           `json:"tax_id"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);not null"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"` // subtotal - discount + tax
}

// ApplyTotals recomputes the invoice totals from its lines
func (inv *Invoice) ApplyTotals() {
	inv.Subtotal, inv.DiscountTotal, inv.TaxTotal = decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range inv.Lines {
		inv.Subtotal = inv.Subtotal.Add(l.Subtotal)
		inv.DiscountTotal = inv.DiscountTotal.Add(l.DiscountAmount)
		inv.TaxTotal = inv.TaxTotal.Add(l.TaxAmount)
	}
	inv.Total = inv.Subtotal.Sub(inv.DiscountTotal).Add(inv.TaxTotal)
}
