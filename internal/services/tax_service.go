package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var maxTaxRate = decimal.NewFromInt(100)

// TaxService manages tax rates
type TaxService struct {
	db *gorm.DB
}

func NewTaxService(db *gorm.DB) *TaxService {
	return &TaxService{db: db}
}

type TaxInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	TaxType     string          `json:"tax_type" validate:"max=50"`
	Rate        decimal.Decimal `json:"rate"`
	Description string          `json:"description"`
	IsActive    *bool           `json:"is_active"`
}

type TaxUpdate struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	TaxType     *string          `json:"tax_type" validate:"omitempty,max=50"`
	Rate        *decimal.Decimal `json:"rate"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"is_active"`
}

func checkRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxTaxRate) {
		return apperror.Validation("Validation failed", "rate must be between 0 and 100")
	}
	return nil
}

func (s *TaxService) Create(ctx context.Context, in TaxInput) (*models.Tax, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkRate(in.Rate); err != nil {
		return nil, err
	}
	tax := &models.Tax{
		Name:        in.Name,
		TaxType:     in.TaxType,
		Rate:        in.Rate.Round(2),
		Description: in.Description,
		IsActive:    boolOr(in.IsActive, true),
	}
	if tax.TaxType == "" {
		tax.TaxType = "percentage"
	}
	if err := s.db.WithContext(ctx).Create(tax).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return tax, nil
}

func (s *TaxService) List(ctx context.Context, includeInactive bool) ([]models.Tax, error) {
	q := s.db.WithContext(ctx).Order("id")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var taxes []models.Tax
	return taxes, apperror.FromDB(q.Find(&taxes).Error, "")
}

func (s *TaxService) Get(ctx context.Context, id uint) (*models.Tax, error) {
	var tax models.Tax
	if err := s.db.WithContext(ctx).Take(&tax, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Tax not found")
	}
	return &tax, nil
}

func (s *TaxService) Update(ctx context.Context, id uint, in TaxUpdate) (*models.Tax, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Rate != nil {
		if err := checkRate(*in.Rate); err != nil {
			return nil, err
		}
	}

	var tax models.Tax
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&tax, id).Error; err != nil {
			return apperror.FromDB(err, "Tax not found")
		}
		if in.Name != nil {
			tax.Name = *in.Name
		}
		if in.TaxType != nil {
			tax.TaxType = *in.TaxType
		}
		if in.Rate != nil {
			tax.Rate = in.Rate.Round(2)
		}
		if in.Description != nil {
			tax.Description = *in.Description
		}
		tax.IsActive = boolOr(in.IsActive, tax.IsActive)
		return apperror.FromDB(tx.Save(&tax).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return &tax, nil
}

// Deactivate retires a rate; existing lines keep pointing at it
func (s *TaxService) Deactivate(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Tax{}, id, "Tax not found"); err != nil {
			return err
		}
		return apperror.FromDB(tx.Model(&models.Tax{}).Where("id = ?", id).Update("is_active", false).Error, "")
	})
}
