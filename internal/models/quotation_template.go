package models

import (
	"github.com/shopspring/decimal"
)

// QuotationTemplate is a reusable bundle of lines for new subscriptions
type QuotationTemplate struct {
	BaseModel

	Name            string                  `json:"name" gorm:"size:255;not null"`
	ValidityDays    int                     `json:"validity_days" gorm:"not null"`
	RecurringPlanID *uint                   `json:"recurring_plan_id"`
	Lines           []QuotationTemplateLine `json:"lines"`
}

type QuotationTemplateLine struct {
	BaseModel

	QuotationTemplateID uint            `json:"quotation_template_id" gorm:"not null;index"`
	ProductID           uint            `json:"product_id" gorm:"not null"`
	Quantity            int             `json:"quantity" gorm:"not null"`
	UnitPrice           decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
}
