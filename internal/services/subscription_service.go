package services

import (
	"context"
	"fmt"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/database"
	"subtrack-api/internal/models"
	"subtrack-api/pkg/logging"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const subscriptionPrefix = "SUB"

// SubscriptionService owns the subscription lifecycle
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

type SubscriptionLineInput struct {
	ProductID  uint             `json:"product_id" validate:"required"`
	Quantity   int              `json:"quantity" validate:"min=1"`
	UnitPrice  *decimal.Decimal `json:"unit_price"` // defaults to the product's sales price
	TaxID      *uint            `json:"tax_id"`
	DiscountID *uint            `json:"discount_id"`
}

type SubscriptionInput struct {
	CustomerID     uint                    `json:"customer_id" validate:"required"`
	PlanID         uint                    `json:"plan_id"` // may come from the template
	SalespersonID  *uint                   `json:"salesperson_id"`
	TemplateID     *uint                   `json:"template_id"`
	StartDate      *time.Time              `json:"start_date"`
	ExpirationDate *time.Time              `json:"expiration_date"`
	PaymentTerms   string                  `json:"payment_terms" validate:"max=100"`
	Notes          string                  `json:"notes"`
	Lines          []SubscriptionLineInput `json:"lines" validate:"dive"`
}

type SubscriptionUpdate struct {
	PlanID         *uint      `json:"plan_id"`
	SalespersonID  *uint      `json:"salesperson_id"`
	StartDate      *time.Time `json:"start_date"`
	ExpirationDate *time.Time `json:"expiration_date"`
	PaymentTerms   *string    `json:"payment_terms" validate:"omitempty,max=100"`
	Notes          *string    `json:"notes"`
}

// SubscriptionLineUpdate changes a line; a zero tax_id or discount_id clears it
type SubscriptionLineUpdate struct {
	Quantity   *int             `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	TaxID      *uint            `json:"tax_id"`
	DiscountID *uint            `json:"discount_id"`
}

type SubscriptionFilter struct {
	Status     models.SubscriptionStatus `form:"status"`
	CustomerID uint                      `form:"customer_id"`
	Page
}

func (s *SubscriptionService) Create(ctx context.Context, in SubscriptionInput) (*models.Subscription, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var sub models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.User{}, in.CustomerID, "Customer not found"); err != nil {
			return err
		}

		planID := in.PlanID
		lineInputs := in.Lines
		var tmpl *models.QuotationTemplate
		if in.TemplateID != nil {
			var err error
			if tmpl, err = loadTemplate(tx, *in.TemplateID); err != nil {
				return err
			}
			if planID == 0 && tmpl.RecurringPlanID != nil {
				planID = *tmpl.RecurringPlanID
			}
			if len(lineInputs) == 0 {
				lineInputs = templateLineInputs(tmpl)
			}
		}
		if planID == 0 {
			return apperror.Validation("Validation failed", "plan_id is required")
		}

		var plan models.RecurringPlan
		if err := tx.Take(&plan, planID).Error; err != nil {
			return apperror.FromDB(err, "Recurring plan not found")
		}

		lines, err := buildSubscriptionLines(tx, &plan, lineInputs)
		if err != nil {
			return err
		}

		number, err := database.NextSequence(tx, subscriptionPrefix, &models.Subscription{}, "subscription_number")
		if err != nil {
			return apperror.FromDB(err, "")
		}

		sub = models.Subscription{
			SubscriptionNumber: number,
			CustomerID:         in.CustomerID,
			PlanID:             plan.ID,
			SalespersonID:      in.SalespersonID,
			Status:             models.SubscriptionDraft,
			StartDate:          dateOrToday(in.StartDate),
			ExpirationDate:     optionalDate(in.ExpirationDate),
			PaymentTerms:       in.PaymentTerms,
			Notes:              in.Notes,
			Lines:              lines,
		}
		if sub.ExpirationDate == nil && tmpl != nil {
			expires := sub.StartDate.AddDate(0, 0, tmpl.ValidityDays)
			sub.ExpirationDate = &expires
		}
		if sub.ExpirationDate != nil && sub.ExpirationDate.Before(sub.StartDate) {
			return apperror.BadRequest("expiration_date must not be before start_date")
		}

		return apperror.FromDB(tx.Omit("Plan").Create(&sub).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, sub.ID)
}

func templateLineInputs(tmpl *models.QuotationTemplate) []SubscriptionLineInput {
	inputs := make([]SubscriptionLineInput, 0, len(tmpl.Lines))
	for _, l := range tmpl.Lines {
		price := l.UnitPrice
		inputs = append(inputs, SubscriptionLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: &price,
		})
	}
	return inputs
}

func buildSubscriptionLines(tx *gorm.DB, plan *models.RecurringPlan, inputs []SubscriptionLineInput) ([]models.SubscriptionLine, error) {
	lines := make([]models.SubscriptionLine, 0, len(inputs))
	for _, in := range inputs {
		line, err := buildSubscriptionLine(tx, plan, in)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, nil
}

func buildSubscriptionLine(tx *gorm.DB, plan *models.RecurringPlan, in SubscriptionLineInput) (*models.SubscriptionLine, error) {
	if err := nonNegativePtr("unit_price", in.UnitPrice); err != nil {
		return nil, err
	}
	if plan != nil && in.Quantity < plan.MinQuantity {
		return nil, apperror.BadRequest("Quantity must be at least %d for plan %s", plan.MinQuantity, plan.Name)
	}
	price, err := resolveUnitPrice(tx, in.ProductID, in.UnitPrice)
	if err != nil {
		return nil, err
	}
	if in.TaxID != nil {
		if err := ensureExists(tx, &models.Tax{}, *in.TaxID, "Tax not found"); err != nil {
			return nil, err
		}
	}
	if in.DiscountID != nil {
		if err := ensureExists(tx, &models.Discount{}, *in.DiscountID, "Discount not found"); err != nil {
			return nil, err
		}
	}
	return &models.SubscriptionLine{
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		UnitPrice:  price,
		TaxID:      in.TaxID,
		DiscountID: in.DiscountID,
		Amount:     models.LineAmount(in.Quantity, price),
	}, nil
}

func (s *SubscriptionService) List(ctx context.Context, f SubscriptionFilter) ([]models.Subscription, error) {
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Subscription{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	var subs []models.Subscription
	err := q.Preload("Lines").Order("id").Offset(p.Skip).Limit(p.Limit).Find(&subs).Error
	return subs, apperror.FromDB(err, "")
}

func (s *SubscriptionService) Get(ctx context.Context, id uint) (*models.Subscription, error) {
	return loadSubscription(s.db.WithContext(ctx), id)
}

func loadSubscription(tx *gorm.DB, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Plan").
		Take(&sub, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Subscription not found")
	}
	return &sub, nil
}

// lockSubscription loads the row FOR UPDATE inside tx
func lockSubscription(tx *gorm.DB, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&sub, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription not found")
	}
	return &sub, nil
}

// Update edits header fields of a draft or quotation
func (s *SubscriptionService) Update(ctx context.Context, id uint, in SubscriptionUpdate) (*models.Subscription, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := lockSubscription(tx, id)
		if err != nil {
			return err
		}
		if !sub.Status.Editable() {
			return apperror.BadRequest("Can only update subscriptions in DRAFT or QUOTATION status")
		}

		updates := map[string]interface{}{}
		if in.PlanID != nil {
			if err := ensureExists(tx, &models.RecurringPlan{}, *in.PlanID, "Recurring plan not found"); err != nil {
				return err
			}
			updates["plan_id"] = *in.PlanID
		}
		if in.SalespersonID != nil {
			updates["salesperson_id"] = *in.SalespersonID
		}
		start := sub.StartDate
		if in.StartDate != nil {
			start = models.DateOf(*in.StartDate)
			updates["start_date"] = start
		}
		if in.ExpirationDate != nil {
			expires := models.DateOf(*in.ExpirationDate)
			if expires.Before(start) {
				return apperror.BadRequest("expiration_date must not be before start_date")
			}
			updates["expiration_date"] = expires
		}
		if in.PaymentTerms != nil {
			updates["payment_terms"] = *in.PaymentTerms
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		if len(updates) == 0 {
			return nil
		}
		return apperror.FromDB(tx.Model(sub).Updates(updates).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a draft and its lines
func (s *SubscriptionService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := lockSubscription(tx, id)
		if err != nil {
			return err
		}
		if sub.Status != models.SubscriptionDraft {
			return apperror.BadRequest("Can only delete subscriptions in DRAFT status")
		}
		if err := tx.Where("subscription_id = ?", id).Delete(&models.SubscriptionLine{}).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		return apperror.FromDB(tx.Delete(sub).Error, "")
	})
}

func editableSubscription(tx *gorm.DB, id uint) (*models.Subscription, *models.RecurringPlan, error) {
	sub, err := lockSubscription(tx, id)
	if err != nil {
		return nil, nil, err
	}
	if !sub.Status.Editable() {
		return nil, nil, apperror.BadRequest("Can only change lines of subscriptions in DRAFT or QUOTATION status")
	}
	var plan models.RecurringPlan
	if err := tx.Take(&plan, sub.PlanID).Error; err != nil {
		return nil, nil, apperror.FromDB(err, "Recurring plan not found")
	}
	return sub, &plan, nil
}

func (s *SubscriptionService) AddLine(ctx context.Context, subID uint, in SubscriptionLineInput) (*models.SubscriptionLine, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var line *models.SubscriptionLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, plan, err := editableSubscription(tx, subID)
		if err != nil {
			return err
		}
		if line, err = buildSubscriptionLine(tx, plan, in); err != nil {
			return err
		}
		line.SubscriptionID = subID
		return apperror.FromDB(tx.Create(line).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *SubscriptionService) UpdateLine(ctx context.Context, subID, lineID uint, in SubscriptionLineUpdate) (*models.SubscriptionLine, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := nonNegativePtr("unit_price", in.UnitPrice); err != nil {
		return nil, err
	}

	var line models.SubscriptionLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, plan, err := editableSubscription(tx, subID)
		if err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", subID).Take(&line, lineID).Error; err != nil {
			return apperror.FromDB(err, "Subscription line not found")
		}
		if in.Quantity != nil {
			if *in.Quantity < plan.MinQuantity {
				return apperror.BadRequest("Quantity must be at least %d for plan %s", plan.MinQuantity, plan.Name)
			}
			line.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			line.UnitPrice = models.Money(*in.UnitPrice)
		}
		if in.TaxID != nil {
			if line.TaxID, err = optionalRef(tx, &models.Tax{}, *in.TaxID, "Tax not found"); err != nil {
				return err
			}
		}
		if in.DiscountID != nil {
			if line.DiscountID, err = optionalRef(tx, &models.Discount{}, *in.DiscountID, "Discount not found"); err != nil {
				return err
			}
		}
		line.Amount = models.LineAmount(line.Quantity, line.UnitPrice)
		return apperror.FromDB(tx.Omit("Product").Save(&line).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// optionalRef maps 0 to nil and otherwise checks the referenced row exists
func optionalRef(tx *gorm.DB, model interface{}, id uint, notFound string) (*uint, error) {
	if id == 0 {
		return nil, nil
	}
	if err := ensureExists(tx, model, id, notFound); err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *SubscriptionService) DeleteLine(ctx context.Context, subID, lineID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := editableSubscription(tx, subID); err != nil {
			return err
		}
		res := tx.Where("subscription_id = ?", subID).Delete(&models.SubscriptionLine{}, lineID)
		if res.Error != nil {
			return apperror.FromDB(res.Error, "")
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("Subscription line not found")
		}
		return nil
	})
}

// Transition applies a lifecycle action and its side effects
func (s *SubscriptionService) Transition(ctx context.Context, id uint, action string) (*models.Subscription, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := lockSubscription(tx, id)
		if err != nil {
			return err
		}
		var plan models.RecurringPlan
		if err := tx.Take(&plan, sub.PlanID).Error; err != nil {
			return apperror.FromDB(err, "Recurring plan not found")
		}

		next, err := NextStatus(action, sub.Status, &plan)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"status": next}
		switch action {
		case ActionActivate:
			if sub.NextInvoiceDate == nil {
				updates["next_invoice_date"] = sub.StartDate
			}
		case ActionCancel:
			res := tx.Model(&models.Invoice{}).
				Where("subscription_id = ? AND status IN ?", sub.ID,
					[]models.InvoiceStatus{models.InvoiceDraft, models.InvoiceConfirmed}).
				Update("status", models.InvoiceCancelled)
			if res.Error != nil {
				return apperror.FromDB(res.Error, "")
			}
			if res.RowsAffected > 0 {
				logging.Infof("Cancelled %d open invoice(s) of subscription %s", res.RowsAffected, sub.SubscriptionNumber)
			}
		}

		return apperror.FromDB(tx.Model(sub).Updates(updates).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Renew starts a new draft from a closed subscription whose plan is renewable
func (s *SubscriptionService) Renew(ctx context.Context, id uint) (*models.Subscription, error) {
	return s.spawn(ctx, id, func(tx *gorm.DB, src *models.Subscription) error {
		if src.Status != models.SubscriptionClosed {
			return apperror.BadRequest("Can only renew CLOSED subscriptions")
		}
		var plan models.RecurringPlan
		if err := tx.Take(&plan, src.PlanID).Error; err != nil {
			return apperror.FromDB(err, "Recurring plan not found")
		}
		if !plan.Renewable {
			return apperror.BadRequest("This plan does not allow renewal")
		}
		return nil
	}, "Renewal")
}

// Upsell starts a new draft from an active subscription
func (s *SubscriptionService) Upsell(ctx context.Context, id uint) (*models.Subscription, error) {
	return s.spawn(ctx, id, func(_ *gorm.DB, src *models.Subscription) error {
		if src.Status != models.SubscriptionActive {
			return apperror.BadRequest("Can only upsell ACTIVE subscriptions")
		}
		return nil
	}, "Upsell")
}

// spawn copies src and its lines into a new draft linked through parent_id
func (s *SubscriptionService) spawn(ctx context.Context, id uint, check func(*gorm.DB, *models.Subscription) error, kind string) (*models.Subscription, error) {
	var child models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		src, err := lockSubscription(tx, id)
		if err != nil {
			return err
		}
		if err := check(tx, src); err != nil {
			return err
		}

		var srcLines []models.SubscriptionLine
		if err := tx.Where("subscription_id = ?", src.ID).Order("id").Find(&srcLines).Error; err != nil {
			return apperror.FromDB(err, "")
		}

		number, err := database.NextSequence(tx, subscriptionPrefix, &models.Subscription{}, "subscription_number")
		if err != nil {
			return apperror.FromDB(err, "")
		}

		lines := make([]models.SubscriptionLine, 0, len(srcLines))
		for _, l := range srcLines {
			lines = append(lines, models.SubscriptionLine{
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				UnitPrice:  l.UnitPrice,
				TaxID:      l.TaxID,
				DiscountID: l.DiscountID,
				Amount:     l.Amount,
			})
		}

		parentID := src.ID
		child = models.Subscription{
			SubscriptionNumber: number,
			CustomerID:         src.CustomerID,
			PlanID:             src.PlanID,
			SalespersonID:      src.SalespersonID,
			ParentID:           &parentID,
			Status:             models.SubscriptionDraft,
			StartDate:          today(),
			PaymentTerms:       src.PaymentTerms,
			Notes:              fmt.Sprintf("%s of %s", kind, src.SubscriptionNumber),
			Lines:              lines,
		}
		return apperror.FromDB(tx.Omit("Plan").Create(&child).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, child.ID)
}

// History returns the parent chain from the root down to id, followed by
// the direct children of id
func (s *SubscriptionService) History(ctx context.Context, id uint) ([]models.Subscription, error) {
	db := s.db.WithContext(ctx)

	var current models.Subscription
	if err := db.Take(&current, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription not found")
	}

	chain := []models.Subscription{current}
	seen := map[uint]bool{current.ID: true}
	for current.ParentID != nil && !seen[*current.ParentID] {
		var parent models.Subscription
		if err := db.Take(&parent, *current.ParentID).Error; err != nil {
			return nil, apperror.FromDB(err, "Subscription not found")
		}
		seen[parent.ID] = true
		chain = append([]models.Subscription{parent}, chain...)
		current = parent
	}

	var children []models.Subscription
	if err := db.Where("parent_id = ?", id).Order("id").Find(&children).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	for _, c := range children {
		if !seen[c.ID] {
			chain = append(chain, c)
		}
	}
	return chain, nil
}
