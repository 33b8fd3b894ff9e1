package services

import (
	"context"
	"errors"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartService manages the per-user basket that feeds checkout
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

type CartItemInput struct {
	ProductID uint             `json:"product_id" validate:"required"`
	VariantID *uint            `json:"variant_id"`
	PlanID    *uint            `json:"plan_id"`
	Quantity  int              `json:"quantity" validate:"gte=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

type CartItemUpdate struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// CartItemView is a cart item with display names resolved
type CartItemView struct {
	models.CartItem
	ProductName string          `json:"product_name"`
	VariantName *string         `json:"variant_name"`
	PlanName    *string         `json:"plan_name"`
	Amount      decimal.Decimal `json:"amount"`
}

type CartView struct {
	ID       uint            `json:"id"`
	UserID   uint            `json:"user_id"`
	Items    []CartItemView  `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// cartFor returns the user's cart, creating it on first access
func cartFor(tx *gorm.DB, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return &cart, nil
}

func cartItems(tx *gorm.DB, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := tx.Where("cart_id = ?", cartID).Order("id").Find(&items).Error
	return items, apperror.FromDB(err, "")
}

func (s *CartService) Get(ctx context.Context, userID uint) (*CartView, error) {
	var view *CartView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		items, err := cartItems(tx, cart.ID)
		if err != nil {
			return err
		}
		view, err = describeCart(tx, cart, items)
		return err
	})
	return view, err
}

func describeCart(tx *gorm.DB, cart *models.Cart, items []models.CartItem) (*CartView, error) {
	view := &CartView{ID: cart.ID, UserID: cart.UserID, Items: make([]CartItemView, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		v := CartItemView{CartItem: item, Amount: models.LineAmount(item.Quantity, item.UnitPrice)}

		var product models.Product
		found, err := takeOptional(tx.Select("id", "name"), &product, item.ProductID)
		if err != nil {
			return nil, err
		}
		if found {
			v.ProductName = product.Name
		}
		if item.VariantID != nil {
			var variant models.ProductVariant
			found, err := takeOptional(tx, &variant, *item.VariantID)
			if err != nil {
				return nil, err
			}
			if found {
				label := variant.Label()
				v.VariantName = &label
			}
		}
		if item.PlanID != nil {
			var plan models.RecurringPlan
			found, err := takeOptional(tx.Select("id", "name"), &plan, *item.PlanID)
			if err != nil {
				return nil, err
			}
			if found {
				v.PlanName = &plan.Name
			}
		}

		view.Subtotal = view.Subtotal.Add(v.Amount)
		view.Items = append(view.Items, v)
	}
	return view, nil
}

// takeOptional loads dst by id, reporting a missing row as not found rather than an error
func takeOptional(tx *gorm.DB, dst interface{}, id uint) (bool, error) {
	err := tx.Take(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.FromDB(err, "")
	}
	return true, nil
}

// AddItem merges into an existing (product, variant, plan) row by adding the
// quantity and taking the new unit price
func (s *CartService) AddItem(ctx context.Context, userID uint, in CartItemInput) (*models.CartItem, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegativePtr("unit_price", in.UnitPrice); err != nil {
		return nil, err
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}

	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Take(&product, in.ProductID).Error; err != nil {
			return apperror.FromDB(err, "Product not found")
		}
		if !product.IsActive {
			return apperror.BadRequest("Product %s is not available", product.Name)
		}

		price := product.SalesPrice
		if in.VariantID != nil {
			var variant models.ProductVariant
			err := tx.Where("product_id = ?", product.ID).Take(&variant, *in.VariantID).Error
			if err != nil {
				return apperror.FromDB(err, "Product variant not found")
			}
			price = price.Add(variant.ExtraPrice)
		}
		if in.PlanID != nil {
			if err := ensureExists(tx, &models.RecurringPlan{}, *in.PlanID, "Recurring plan not found"); err != nil {
				return err
			}
		}
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}

		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}

		q := tx.Where("cart_id = ? AND product_id = ?", cart.ID, in.ProductID)
		q = whereOptional(q, "variant_id", in.VariantID)
		q = whereOptional(q, "plan_id", in.PlanID)
		err = q.Take(&item).Error
		switch {
		case err == nil:
			item.Quantity += in.Quantity
			item.UnitPrice = models.Money(price)
			return apperror.FromDB(tx.Save(&item).Error, "")
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: in.ProductID,
				VariantID: in.VariantID,
				PlanID:    in.PlanID,
				Quantity:  in.Quantity,
				UnitPrice: models.Money(price),
			}
			return apperror.FromDB(tx.Create(&item).Error, "")
		default:
			return apperror.FromDB(err, "")
		}
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// whereOptional matches column against v, treating nil as IS NULL
func whereOptional(q *gorm.DB, column string, v *uint) *gorm.DB {
	if v == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *v)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint, in CartItemUpdate) (*models.CartItem, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Take(&item, itemID).Error; err != nil {
			return apperror.FromDB(err, "Cart item not found")
		}
		item.Quantity = in.Quantity
		return apperror.FromDB(tx.Save(&item).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		res := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}, itemID)
		if res.Error != nil {
			return apperror.FromDB(res.Error, "")
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("Cart item not found")
		}
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		return apperror.FromDB(tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error, "")
	})
}
