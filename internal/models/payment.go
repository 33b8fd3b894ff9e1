package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "credit_card"

// Payment records money received against an invoice
type Payment struct {
	BaseModel

	InvoiceID     uint            `json:"invoice_id" gorm:"not null;index"`
	UserID        *uint           `json:"user_id" gorm:"index"` // who recorded it
	PaymentMethod string          `json:"payment_method" gorm:"size:50;not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	PaymentDate   time.Time       `json:"payment_date" gorm:"type:date;not null;index"`
	Reference     string          `json:"reference" gorm:"size:100"`
	Notes         string          `json:"notes" gorm:"type:text"`
}
