package models

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Tax is a named percentage rate
type Tax struct {
	BaseModel

	Name        string          `json:"name" gorm:"size:100;not null"`
	TaxType     string          `json:"tax_type" gorm:"size:50;not null"`
	Rate        decimal.Decimal `json:"rate" gorm:"type:decimal(5,2);not null"` // percent
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	Description string          `json:"description" gorm:"type:text"`
}

// Amount is the tax due on base, rounded to cents
func (t Tax) Amount(base decimal.Decimal) decimal.Decimal {
	return Money(base.Mul(t.Rate).Div(hundred))
}
