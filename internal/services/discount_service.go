package services

import (
	"context"
	"errors"
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountService manages discount codes and their usage
type DiscountService struct {
	db *gorm.DB
}

func NewDiscountService(db *gorm.DB) *DiscountService {
	return &DiscountService{db: db}
}

type DiscountInput struct {
	Name         string              `json:"name" validate:"required,max=100"`
	DiscountType models.DiscountType `json:"discount_type" validate:"required,oneof=fixed percentage"`
	Value        decimal.Decimal     `json:"value"`
	MinPurchase  decimal.Decimal     `json:"min_purchase"`
	MinQuantity  int                 `json:"min_quantity" validate:"min=0"`
	StartDate    *time.Time          `json:"start_date"`
	EndDate      *time.Time          `json:"end_date"`
	LimitUsage   *int                `json:"limit_usage" validate:"omitempty,min=1"`
	IsActive     *bool               `json:"is_active"`
	ProductIDs   []uint              `json:"product_ids"`
}

type DiscountUpdate struct {
	Name         *string              `json:"name" validate:"omitempty,min=1,max=100"`
	DiscountType *models.DiscountType `json:"discount_type" validate:"omitempty,oneof=fixed percentage"`
	Value        *decimal.Decimal     `json:"value"`
	MinPurchase  *decimal.Decimal     `json:"min_purchase"`
	MinQuantity  *int                 `json:"min_quantity" validate:"omitempty,min=0"`
	StartDate    *time.Time           `json:"start_date"`
	EndDate      *time.Time           `json:"end_date"`
	LimitUsage   *int                 `json:"limit_usage" validate:"omitempty,min=1"`
	IsActive     *bool                `json:"is_active"`
	ProductIDs   []uint               `json:"product_ids"` // nil keeps the scope, empty clears it
}

// ValidateCodeInput asks whether a code can be used for a basket
type ValidateCodeInput struct {
	Code     string          `json:"code" validate:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Quantity int             `json:"quantity" validate:"min=0"`
}

// CodeCheck answers ValidateCode; Valid=false carries the reason in Message
type CodeCheck struct {
	Valid          bool                `json:"valid"`
	DiscountID     uint                `json:"discount_id,omitempty"`
	Name           string              `json:"name,omitempty"`
	DiscountType   models.DiscountType `json:"discount_type,omitempty"`
	Value          decimal.Decimal     `json:"value"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	Message        string              `json:"message"`
}

func checkDiscountValue(t models.DiscountType, v decimal.Decimal) error {
	if !v.IsPositive() {
		return apperror.Validation("Validation failed", "value must be greater than 0")
	}
	if t == models.DiscountPercentage && v.GreaterThan(hundredPercent) {
		return apperror.Validation("Validation failed", "percentage value must not exceed 100")
	}
	return nil
}

var hundredPercent = decimal.NewFromInt(100)

func loadProducts(tx *gorm.DB, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	if len(products) != len(uniqueIDs(ids)) {
		return nil, apperror.NotFound("One or more products not found")
	}
	return products, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s *DiscountService) Create(ctx context.Context, in DiscountInput) (*models.Discount, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkDiscountValue(in.DiscountType, in.Value); err != nil {
		return nil, err
	}
	if err := nonNegative("min_purchase", in.MinPurchase); err != nil {
		return nil, err
	}
	if err := checkDateWindow(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	discount := &models.Discount{
		Name:         strings.TrimSpace(in.Name),
		DiscountType: in.DiscountType,
		Value:        models.Money(in.Value),
		MinPurchase:  models.Money(in.MinPurchase),
		MinQuantity:  in.MinQuantity,
		StartDate:    optionalDate(in.StartDate),
		EndDate:      optionalDate(in.EndDate),
		LimitUsage:   in.LimitUsage,
		IsActive:     boolOr(in.IsActive, true),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Discount{}).Where("name = ?", discount.Name).Count(&taken).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		if taken > 0 {
			return apperror.Conflict("Discount code %s already exists", discount.Name)
		}
		products, err := loadProducts(tx, in.ProductIDs)
		if err != nil {
			return err
		}
		discount.Products = products
		if err := tx.Omit("Products.*").Create(discount).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("Discount code %s already exists", discount.Name)
			}
			return apperror.FromDB(err, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return discount, nil
}

func (s *DiscountService) List(ctx context.Context, includeInactive bool) ([]models.Discount, error) {
	q := s.db.WithContext(ctx).Preload("Products").Order("id")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var discounts []models.Discount
	return discounts, apperror.FromDB(q.Find(&discounts).Error, "")
}

func (s *DiscountService) Get(ctx context.Context, id uint) (*models.Discount, error) {
	var discount models.Discount
	if err := s.db.WithContext(ctx).Preload("Products").Take(&discount, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Discount not found")
	}
	return &discount, nil
}

func (s *DiscountService) Update(ctx context.Context, id uint, in DiscountUpdate) (*models.Discount, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegativePtr("min_purchase", in.MinPurchase); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Discount
		if err := tx.Take(&d, id).Error; err != nil {
			return apperror.FromDB(err, "Discount not found")
		}
		if in.Name != nil {
			d.Name = strings.TrimSpace(*in.Name)
		}
		if in.DiscountType != nil {
			d.DiscountType = *in.DiscountType
		}
		if in.Value != nil {
			d.Value = models.Money(*in.Value)
		}
		if err := checkDiscountValue(d.DiscountType, d.Value); err != nil {
			return err
		}
		if in.MinPurchase != nil {
			d.MinPurchase = models.Money(*in.MinPurchase)
		}
		if in.MinQuantity != nil {
			d.MinQuantity = *in.MinQuantity
		}
		if in.StartDate != nil {
			d.StartDate = optionalDate(in.StartDate)
		}
		if in.EndDate != nil {
			d.EndDate = optionalDate(in.EndDate)
		}
		if err := checkDateWindow(d.StartDate, d.EndDate); err != nil {
			return err
		}
		if in.LimitUsage != nil {
			d.LimitUsage = in.LimitUsage
		}
		d.IsActive = boolOr(in.IsActive, d.IsActive)

		if err := tx.Omit("Products").Save(&d).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("Discount code %s already exists", d.Name)
			}
			return apperror.FromDB(err, "")
		}

		if in.ProductIDs != nil {
			products, err := loadProducts(tx, in.ProductIDs)
			if err != nil {
				return err
			}
			assoc := tx.Model(&d).Omit("Products.*").Association("Products")
			if len(products) == 0 {
				err = assoc.Clear()
			} else {
				err = assoc.Replace(products)
			}
			if err != nil {
				return apperror.FromDB(err, "")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Deactivate retires a code
func (s *DiscountService) Deactivate(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Discount{}, id, "Discount not found"); err != nil {
			return err
		}
		return apperror.FromDB(tx.Model(&models.Discount{}).Where("id = ?", id).Update("is_active", false).Error, "")
	})
}

// ValidateCode checks a code against a prospective basket without consuming it
func (s *DiscountService) ValidateCode(ctx context.Context, in ValidateCodeInput) (*CodeCheck, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	discount, err := findUsableDiscount(s.db.WithContext(ctx), in.Code, today())
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Kind == apperror.KindBadRequest {
			return &CodeCheck{Valid: false, Message: appErr.Message}, nil
		}
		return nil, err
	}
	if err := checkMinimums(discount, in.Subtotal, in.Quantity); err != nil {
		appErr, _ := apperror.As(err)
		return &CodeCheck{Valid: false, DiscountID: discount.ID, Name: discount.Name, Message: appErr.Message}, nil
	}

	return &CodeCheck{
		Valid:          true,
		DiscountID:     discount.ID,
		Name:           discount.Name,
		DiscountType:   discount.DiscountType,
		Value:          discount.Value,
		DiscountAmount: discount.AmountFor(in.Subtotal),
		Message:        "Discount code is valid",
	}, nil
}

// findUsableDiscount resolves a code and checks status, window and usage cap
func findUsableDiscount(tx *gorm.DB, code string, day time.Time) (*models.Discount, error) {
	var discount models.Discount
	err := tx.Preload("Products").Where("name = ?", strings.TrimSpace(code)).Take(&discount).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.BadRequest("Invalid discount code")
	}
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	if !discount.IsActive {
		return nil, apperror.BadRequest("Invalid discount code")
	}
	if !discount.InWindow(day) {
		return nil, apperror.BadRequest("Discount code is not valid on this date")
	}
	if discount.Exhausted() {
		return nil, apperror.BadRequest("Discount usage limit reached")
	}
	return &discount, nil
}

func checkMinimums(d *models.Discount, subtotal decimal.Decimal, quantity int) error {
	if d.MinPurchase.IsPositive() && subtotal.LessThan(d.MinPurchase) {
		return apperror.BadRequest("Minimum purchase of %s required", d.MinPurchase.StringFixed(2))
	}
	if d.MinQuantity > 0 && quantity < d.MinQuantity {
		return apperror.BadRequest("Minimum quantity of %d required", d.MinQuantity)
	}
	return nil
}

// consumeDiscount records one use. The conditional update keeps usage_count
// from passing limit_usage when requests race.
func consumeDiscount(tx *gorm.DB, discountID uint) error {
	res := tx.Model(&models.Discount{}).
		Where("id = ?", discountID).
		Where("limit_usage IS NULL OR usage_count < limit_usage").
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return apperror.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return apperror.BadRequest("Discount usage limit reached")
	}
	return nil
}
