package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlanService manages recurring plans
type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

type PlanInput struct {
	Name          string               `json:"name" validate:"required,max=255"`
	Price         decimal.Decimal      `json:"price"`
	BillingPeriod models.BillingPeriod `json:"billing_period" validate:"required,oneof=daily weekly monthly quarterly semi_annual yearly"`
	MinQuantity   *int                 `json:"min_quantity" validate:"omitempty,min=1"`
	StartDate     *time.Time           `json:"start_date"`
	EndDate       *time.Time           `json:"end_date"`
	AutoClose     *bool                `json:"auto_close"`
	Closable      *bool                `json:"closable"`
	Pausable      *bool                `json:"pausable"`
	Renewable     *bool                `json:"renewable"`
}

type PlanUpdate struct {
	Name          *string               `json:"name" validate:"omitempty,min=1,max=255"`
	Price         *decimal.Decimal      `json:"price"`
	BillingPeriod *models.BillingPeriod `json:"billing_period" validate:"omitempty,oneof=daily weekly monthly quarterly semi_annual yearly"`
	MinQuantity   *int                  `json:"min_quantity" validate:"omitempty,min=1"`
	StartDate     *time.Time            `json:"start_date"`
	EndDate       *time.Time            `json:"end_date"`
	AutoClose     *bool                 `json:"auto_close"`
	Closable      *bool                 `json:"closable"`
	Pausable      *bool                 `json:"pausable"`
	Renewable     *bool                 `json:"renewable"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func checkDateWindow(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperror.BadRequest("end_date must not be before start_date")
	}
	return nil
}

// Create defaults to a closable, renewable, non-pausable plan
func (s *PlanService) Create(ctx context.Context, in PlanInput) (*models.RecurringPlan, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegative("price", in.Price); err != nil {
		return nil, err
	}
	if err := checkDateWindow(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	plan := &models.RecurringPlan{
		Name:          in.Name,
		Price:         models.Money(in.Price),
		BillingPeriod: in.BillingPeriod,
		MinQuantity:   1,
		StartDate:     optionalDate(in.StartDate),
		EndDate:       optionalDate(in.EndDate),
		AutoClose:     boolOr(in.AutoClose, false),
		Closable:      boolOr(in.Closable, true),
		Pausable:      boolOr(in.Pausable, false),
		Renewable:     boolOr(in.Renewable, true),
	}
	if in.MinQuantity != nil {
		plan.MinQuantity = *in.MinQuantity
	}

	if err := s.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return plan, nil
}

func (s *PlanService) List(ctx context.Context, page Page) ([]models.RecurringPlan, error) {
	p := page.normalize()
	var plans []models.RecurringPlan
	err := s.db.WithContext(ctx).Order("id").Offset(p.Skip).Limit(p.Limit).Find(&plans).Error
	return plans, apperror.FromDB(err, "")
}

func (s *PlanService) Get(ctx context.Context, id uint) (*models.RecurringPlan, error) {
	var plan models.RecurringPlan
	if err := s.db.WithContext(ctx).Take(&plan, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Recurring plan not found")
	}
	return &plan, nil
}

func (s *PlanService) Update(ctx context.Context, id uint, in PlanUpdate) (*models.RecurringPlan, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegativePtr("price", in.Price); err != nil {
		return nil, err
	}

	var plan models.RecurringPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&plan, id).Error; err != nil {
			return apperror.FromDB(err, "Recurring plan not found")
		}
		if in.Name != nil {
			plan.Name = *in.Name
		}
		if in.Price != nil {
			plan.Price = models.Money(*in.Price)
		}
		if in.BillingPeriod != nil {
			plan.BillingPeriod = *in.BillingPeriod
		}
		if in.MinQuantity != nil {
			plan.MinQuantity = *in.MinQuantity
		}
		if in.StartDate != nil {
			plan.StartDate = optionalDate(in.StartDate)
		}
		if in.EndDate != nil {
			plan.EndDate = optionalDate(in.EndDate)
		}
		if err := checkDateWindow(plan.StartDate, plan.EndDate); err != nil {
			return err
		}
		plan.AutoClose = boolOr(in.AutoClose, plan.AutoClose)
		plan.Closable = boolOr(in.Closable, plan.Closable)
		plan.Pausable = boolOr(in.Pausable, plan.Pausable)
		plan.Renewable = boolOr(in.Renewable, plan.Renewable)
		return apperror.FromDB(tx.Save(&plan).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Delete refuses while any subscription still follows the plan
func (s *PlanService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.RecurringPlan{}, id, "Recurring plan not found"); err != nil {
			return err
		}
		var inUse int64
		if err := tx.Model(&models.Subscription{}).Where("plan_id = ?", id).Count(&inUse).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		if inUse > 0 {
			return apperror.Conflict("Recurring plan is used by %d subscription(s)", inUse)
		}
		return apperror.FromDB(tx.Delete(&models.RecurringPlan{}, id).Error, "")
	})
}
