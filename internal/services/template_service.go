package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultValidityDays = 30

// TemplateService manages quotation templates
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

type TemplateLineInput struct {
	ProductID uint             `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"` // defaults to the product's sales price
}

type TemplateInput struct {
	Name            string              `json:"name" validate:"required,max=255"`
	ValidityDays    *int                `json:"validity_days" validate:"omitempty,min=1"`
	RecurringPlanID *uint               `json:"recurring_plan_id"`
	Lines           []TemplateLineInput `json:"lines" validate:"dive"`
}

type TemplateUpdate struct {
	Name            *string             `json:"name" validate:"omitempty,min=1,max=255"`
	ValidityDays    *int                `json:"validity_days" validate:"omitempty,min=1"`
	RecurringPlanID *uint               `json:"recurring_plan_id"`
	Lines           []TemplateLineInput `json:"lines" validate:"omitempty,dive"` // nil keeps the lines
}

func buildTemplateLines(tx *gorm.DB, in []TemplateLineInput) ([]models.QuotationTemplateLine, error) {
	lines := make([]models.QuotationTemplateLine, 0, len(in))
	for _, l := range in {
		if err := nonNegativePtr("unit_price", l.UnitPrice); err != nil {
			return nil, err
		}
		price, err := resolveUnitPrice(tx, l.ProductID, l.UnitPrice)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.QuotationTemplateLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}
	return lines, nil
}

// resolveUnitPrice returns price when given, otherwise the product's sales price
func resolveUnitPrice(tx *gorm.DB, productID uint, price *decimal.Decimal) (decimal.Decimal, error) {
	var product models.Product
	if err := tx.Take(&product, productID).Error; err != nil {
		return decimal.Zero, apperror.FromDB(err, "Product not found")
	}
	if price != nil {
		return models.Money(*price), nil
	}
	return product.SalesPrice, nil
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*models.QuotationTemplate, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	tmpl := &models.QuotationTemplate{
		Name:            in.Name,
		ValidityDays:    defaultValidityDays,
		RecurringPlanID: in.RecurringPlanID,
	}
	if in.ValidityDays != nil {
		tmpl.ValidityDays = *in.ValidityDays
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.RecurringPlanID != nil {
			if err := ensureExists(tx, &models.RecurringPlan{}, *in.RecurringPlanID, "Recurring plan not found"); err != nil {
				return err
			}
		}
		lines, err := buildTemplateLines(tx, in.Lines)
		if err != nil {
			return err
		}
		tmpl.Lines = lines
		return apperror.FromDB(tx.Create(tmpl).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (s *TemplateService) List(ctx context.Context) ([]models.QuotationTemplate, error) {
	var templates []models.QuotationTemplate
	err := s.db.WithContext(ctx).Preload("Lines").Order("id").Find(&templates).Error
	return templates, apperror.FromDB(err, "")
}

func (s *TemplateService) Get(ctx context.Context, id uint) (*models.QuotationTemplate, error) {
	return loadTemplate(s.db.WithContext(ctx), id)
}

func loadTemplate(tx *gorm.DB, id uint) (*models.QuotationTemplate, error) {
	var tmpl models.QuotationTemplate
	if err := tx.Preload("Lines").Take(&tmpl, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Quotation template not found")
	}
	return &tmpl, nil
}

func (s *TemplateService) Update(ctx context.Context, id uint, in TemplateUpdate) (*models.QuotationTemplate, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tmpl models.QuotationTemplate
		if err := tx.Take(&tmpl, id).Error; err != nil {
			return apperror.FromDB(err, "Quotation template not found")
		}
		if in.Name != nil {
			tmpl.Name = *in.Name
		}
		if in.ValidityDays != nil {
			tmpl.ValidityDays = *in.ValidityDays
		}
		if in.RecurringPlanID != nil {
			if err := ensureExists(tx, &models.RecurringPlan{}, *in.RecurringPlanID, "Recurring plan not found"); err != nil {
				return err
			}
			tmpl.RecurringPlanID = in.RecurringPlanID
		}
		if err := tx.Omit("Lines").Save(&tmpl).Error; err != nil {
			return apperror.FromDB(err, "")
		}

		if in.Lines == nil {
			return nil
		}
		lines, err := buildTemplateLines(tx, in.Lines)
		if err != nil {
			return err
		}
		if err := tx.Where("quotation_template_id = ?", id).Delete(&models.QuotationTemplateLine{}).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		for i := range lines {
			lines[i].QuotationTemplateID = id
		}
		if len(lines) == 0 {
			return nil
		}
		return apperror.FromDB(tx.Create(&lines).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *TemplateService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.QuotationTemplate{}, id, "Quotation template not found"); err != nil {
			return err
		}
		if err := tx.Where("quotation_template_id = ?", id).Delete(&models.QuotationTemplateLine{}).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		return apperror.FromDB(tx.Delete(&models.QuotationTemplate{}, id).Error, "")
	})
}
