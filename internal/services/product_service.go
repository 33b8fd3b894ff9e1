package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService manages the catalog and product variants
type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

type ProductInput struct {
	Name        string             `json:"name" validate:"required,max=255"`
	ProductType models.ProductType `json:"product_type" validate:"omitempty,oneof=consumable service subscription"`
	SalesPrice  decimal.Decimal    `json:"sales_price"`
	CostPrice   decimal.Decimal    `json:"cost_price"`
	Description string             `json:"description"`
	IsActive    *bool              `json:"is_active"`
}

type ProductUpdate struct {
	Name        *string             `json:"name" validate:"omitempty,min=1,max=255"`
	ProductType *models.ProductType `json:"product_type" validate:"omitempty,oneof=consumable service subscription"`
	SalesPrice  *decimal.Decimal    `json:"sales_price"`
	CostPrice   *decimal.Decimal    `json:"cost_price"`
	Description *string             `json:"description"`
	IsActive    *bool               `json:"is_active"`
}

type ProductFilter struct {
	IncludeInactive bool               `form:"include_inactive"`
	ProductType     models.ProductType `form:"product_type"`
	Search          string             `form:"search"`
	Page
}

type VariantInput struct {
	Attribute  string          `json:"attribute" validate:"required,max=100"`
	Value      string          `json:"value" validate:"required,max=100"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
}

type VariantUpdate struct {
	Attribute  *string          `json:"attribute" validate:"omitempty,min=1,max=100"`
	Value      *string          `json:"value" validate:"omitempty,min=1,max=100"`
	ExtraPrice *decimal.Decimal `json:"extra_price"`
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegative("sales_price", in.SalesPrice); err != nil {
		return nil, err
	}
	if err := nonNegative("cost_price", in.CostPrice); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		ProductType: in.ProductType,
		SalesPrice:  models.Money(in.SalesPrice),
		CostPrice:   models.Money(in.CostPrice),
		Description: in.Description,
		IsActive:    true,
	}
	if product.ProductType == "" {
		product.ProductType = models.ProductTypeService
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return product, nil
}

// List hides inactive products unless asked for them
func (s *ProductService) List(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if f.ProductType != "" {
		q = q.Where("product_type = ?", f.ProductType)
	}
	if f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(f.Search))
	}

	var products []models.Product
	err := q.Preload("Variants").Order("id").Offset(p.Skip).Limit(p.Limit).Find(&products).Error
	return products, apperror.FromDB(err, "")
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Variants").Take(&product, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Product not found")
	}
	return &product, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, in ProductUpdate) (*models.Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegativePtr("sales_price", in.SalesPrice); err != nil {
		return nil, err
	}
	if err := nonNegativePtr("cost_price", in.CostPrice); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.ProductType != nil {
		updates["product_type"] = *in.ProductType
	}
	if in.SalesPrice != nil {
		updates["sales_price"] = models.Money(*in.SalesPrice)
	}
	if in.CostPrice != nil {
		updates["cost_price"] = models.Money(*in.CostPrice)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Product{}, id, "Product not found"); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return apperror.FromDB(tx.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Deactivate hides the product; history keeps referencing it
func (s *ProductService) Deactivate(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Product{}, id, "Product not found"); err != nil {
			return err
		}
		return apperror.FromDB(tx.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false).Error, "")
	})
}

func (s *ProductService) ListVariants(ctx context.Context, productID uint) ([]models.ProductVariant, error) {
	db := s.db.WithContext(ctx)
	if err := ensureExists(db, &models.Product{}, productID, "Product not found"); err != nil {
		return nil, err
	}
	var variants []models.ProductVariant
	err := db.Where("product_id = ?", productID).Order("id").Find(&variants).Error
	return variants, apperror.FromDB(err, "")
}

func (s *ProductService) CreateVariant(ctx context.Context, productID uint, in VariantInput) (*models.ProductVariant, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	variant := &models.ProductVariant{
		ProductID:  productID,
		Attribute:  in.Attribute,
		Value:      in.Value,
		ExtraPrice: models.Money(in.ExtraPrice),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Product{}, productID, "Product not found"); err != nil {
			return err
		}
		return apperror.FromDB(tx.Create(variant).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

func (s *ProductService) UpdateVariant(ctx context.Context, productID, variantID uint, in VariantUpdate) (*models.ProductVariant, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var variant models.ProductVariant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Take(&variant, variantID).Error; err != nil {
			return apperror.FromDB(err, "Variant not found")
		}
		if in.Attribute != nil {
			variant.Attribute = *in.Attribute
		}
		if in.Value != nil {
			variant.Value = *in.Value
		}
		if in.ExtraPrice != nil {
			variant.ExtraPrice = models.Money(*in.ExtraPrice)
		}
		return apperror.FromDB(tx.Save(&variant).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (s *ProductService) DeleteVariant(ctx context.Context, productID, variantID uint) error {
	res := s.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.ProductVariant{}, variantID)
	if res.Error != nil {
		return apperror.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Variant not found")
	}
	return nil
}
