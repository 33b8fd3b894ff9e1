package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Money rounds an amount to cents
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DateOf truncates t to midnight UTC; every date column is stored this way
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AllModels lists the tables managed by AutoMigrate, parents first
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Contact{},
		&Product{},
		&ProductVariant{},
		&RecurringPlan{},
		&Tax{},
		&Discount{},
		&QuotationTemplate{},
		&QuotationTemplateLine{},
		&Subscription{},
		&SubscriptionLine{},
		&Invoice{},
		&InvoiceLine{},
		&Payment{},
		&Cart{},
		&CartItem{},
		&SequenceCounter{},
	}
}
