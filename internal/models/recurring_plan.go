package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillingPeriod string

const (
	BillingDaily      BillingPeriod = "daily"
	BillingWeekly     BillingPeriod = "weekly"
	BillingMonthly    BillingPeriod = "monthly"
	BillingQuarterly  BillingPeriod = "quarterly"
	BillingSemiAnnual BillingPeriod = "semi_annual"
	BillingYearly     BillingPeriod = "yearly"
)

var periodDays = map[BillingPeriod]int{
	BillingDaily:      1,
	BillingWeekly:     7,
	BillingMonthly:    30,
	BillingQuarterly:  90,
	BillingSemiAnnual: 180,
	BillingYearly:     365,
}

// Valid reports whether p is a known billing period
func (p BillingPeriod) Valid() bool {
	_, ok := periodDays[p]
	return ok
}

// Days is the fixed length of one period. Months are 30 days, years 365.
func (p BillingPeriod) Days() int {
	return periodDays[p]
}

// Advance moves t forward by one period
func (p BillingPeriod) Advance(t time.Time) time.Time {
	return t.AddDate(0, 0, p.Days())
}

// RecurringPlan is the billing template a subscription follows
type RecurringPlan struct {
	BaseModel

	Name          string          `json:"name" gorm:"size:255;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	BillingPeriod BillingPeriod   `json:"billing_period" gorm:"size:20;not null"`
	MinQuantity   int             `json:"min_quantity" gorm:"not null"`
	StartDate     *time.Time      `json:"start_date" gorm:"type:date"`
	EndDate       *time.Time      `json:"end_date" gorm:"type:date"`

	// Lifecycle permissions
	AutoClose bool `json:"auto_close" gorm:"not null"`
	Closable  bool `json:"closable" gorm:"not null"`
	Pausable  bool `json:"pausable" gorm:"not null"`
	Renewable bool `json:"renewable" gorm:"not null"`
}
