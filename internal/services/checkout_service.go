package services

import (
	"context"
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/database"
	"subtrack-api/internal/models"
	"subtrack-api/pkg/logging"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutService turns a cart into an active subscription with a paid invoice
type CheckoutService struct {
	db      *gorm.DB
	dueDays int
}

func NewCheckoutService(db *gorm.DB, dueDays int) *CheckoutService {
	if dueDays <= 0 {
		dueDays = 30
	}
	return &CheckoutService{db: db, dueDays: dueDays}
}

type CheckoutInput struct {
	PlanID        *uint  `json:"plan_id"`
	PaymentMethod string `json:"payment_method" validate:"max=50"`
	DiscountCode  string `json:"discount_code" validate:"max=100"`
	BillingAddress
}

type CheckoutResult struct {
	SubscriptionID     uint            `json:"subscription_id"`
	SubscriptionNumber string          `json:"subscription_number"`
	InvoiceID          uint            `json:"invoice_id"`
	InvoiceNumber      string          `json:"invoice_number"`
	PaymentID          uint            `json:"payment_id"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	Total              decimal.Decimal `json:"total"`
	Message            string          `json:"message"`
}

// checkoutLine is one cart item being ordered
type checkoutLine struct {
	item     models.CartItem
	product  models.Product
	subtotal decimal.Decimal
	discount decimal.Decimal
}

// Checkout runs in one transaction: any failure leaves the cart, the
// discount counter and the sequences untouched
func (s *CheckoutService) Checkout(ctx context.Context, userID uint, in CheckoutInput) (*CheckoutResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = models.DefaultPaymentMethod
	}

	var result CheckoutResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Take(&user, userID).Error; err != nil {
			return apperror.FromDB(err, "User not found")
		}

		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		items, err := cartItems(tx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperror.BadRequest("Cart is empty")
		}

		plan, err := checkoutPlan(tx, in.PlanID, items)
		if err != nil {
			return err
		}

		lines := make([]*checkoutLine, 0, len(items))
		subtotal := decimal.Zero
		for _, item := range items {
			l := &checkoutLine{item: item, subtotal: models.LineAmount(item.Quantity, item.UnitPrice), discount: decimal.Zero}
			if err := tx.Take(&l.product, item.ProductID).Error; err != nil {
				return apperror.FromDB(err, "Product not found")
			}
			if !l.product.IsActive {
				return apperror.BadRequest("Product %s is no longer available", l.product.Name)
			}
			subtotal = subtotal.Add(l.subtotal)
			lines = append(lines, l)
		}

		if code := strings.TrimSpace(in.DiscountCode); code != "" {
			if err := applyCheckoutDiscount(tx, code, lines); err != nil {
				return err
			}
		}

		day := today()
		subNumber, err := database.NextSequence(tx, subscriptionPrefix, &models.Subscription{}, "subscription_number")
		if err != nil {
			return apperror.FromDB(err, "")
		}
		nextInvoice := plan.BillingPeriod.Advance(day)
		sub := models.Subscription{
			SubscriptionNumber: subNumber,
			CustomerID:         userID,
			PlanID:             plan.ID,
			Status:             models.SubscriptionActive,
			StartDate:          day,
			NextInvoiceDate:    &nextInvoice,
		}
		for _, l := range lines {
			sub.Lines = append(sub.Lines, models.SubscriptionLine{
				ProductID: l.item.ProductID,
				Quantity:  l.item.Quantity,
				UnitPrice: l.item.UnitPrice,
				Amount:    l.subtotal,
			})
		}
		if err := tx.Omit("Plan").Create(&sub).Error; err != nil {
			return apperror.FromDB(err, "")
		}

		invNumber, err := database.NextSequence(tx, invoicePrefix, &models.Invoice{}, "invoice_number")
		if err != nil {
			return apperror.FromDB(err, "")
		}
		due := day.AddDate(0, 0, s.dueDays)
		invoice := models.Invoice{
			InvoiceNumber:  invNumber,
			SubscriptionID: sub.ID,
			CustomerID:     userID,
			Status:         models.InvoiceConfirmed,
			IssueDate:      day,
			DueDate:        &due,
		}
		for _, l := range lines {
			invoice.Lines = append(invoice.Lines, models.InvoiceLine{
				ProductID:      l.item.ProductID,
				Description:    l.product.Name,
				Quantity:       l.item.Quantity,
				UnitPrice:      l.item.UnitPrice,
				Subtotal:       l.subtotal,
				DiscountAmount: l.discount,
				TaxAmount:      decimal.Zero,
				LineTotal:      l.subtotal.Sub(l.discount),
			})
		}
		invoice.ApplyTotals()
		if err := tx.Create(&invoice).Error; err != nil {
			return apperror.FromDB(err, "")
		}

		payment, err := recordPayment(tx, &invoice, paymentRequest{
			method:     method,
			amount:     invoice.Total,
			date:       day,
			reference:  "CHECKOUT-" + subNumber,
			recordedBy: &userID,
			allowZero:  true,
		})
		if err != nil {
			return err
		}

		if err := saveBillingContact(tx, &user, in.BillingAddress); err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return apperror.FromDB(err, "")
		}

		result = CheckoutResult{
			SubscriptionID:     sub.ID,
			SubscriptionNumber: sub.SubscriptionNumber,
			InvoiceID:          invoice.ID,
			InvoiceNumber:      invoice.InvoiceNumber,
			PaymentID:          payment.ID,
			Subtotal:           invoice.Subtotal,
			DiscountAmount:     invoice.DiscountTotal,
			Total:              invoice.Total,
			Message:            "Order placed successfully",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("Checkout by user %d: subscription %s, invoice %s, total %s",
		userID, result.SubscriptionNumber, result.InvoiceNumber, result.Total.StringFixed(2))
	return &result, nil
}

// checkoutPlan uses the requested plan, else the first cart item carrying one
func checkoutPlan(tx *gorm.DB, requested *uint, items []models.CartItem) (*models.RecurringPlan, error) {
	planID := requested
	if planID == nil {
		for _, item := range items {
			if item.PlanID != nil {
				planID = item.PlanID
				break
			}
		}
	}
	if planID == nil {
		return nil, apperror.BadRequest("A recurring plan is required for checkout")
	}
	var plan models.RecurringPlan
	if err := tx.Take(&plan, *planID).Error; err != nil {
		return nil, apperror.FromDB(err, "Recurring plan not found")
	}
	return &plan, nil
}

// applyCheckoutDiscount validates code against the lines it covers, records
// one use and spreads the amount over those lines
func applyCheckoutDiscount(tx *gorm.DB, code string, lines []*checkoutLine) error {
	discount, err := findUsableDiscount(tx, code, today())
	if err != nil {
		return err
	}

	var eligible []*checkoutLine
	base := decimal.Zero
	quantity := 0
	for _, l := range lines {
		if discount.AppliesTo(l.item.ProductID) {
			eligible = append(eligible, l)
			base = base.Add(l.subtotal)
			quantity += l.item.Quantity
		}
	}
	if len(eligible) == 0 {
		return apperror.BadRequest("Discount code does not apply to any item in the cart")
	}
	if err := checkMinimums(discount, base, quantity); err != nil {
		return err
	}

	amount := discount.AmountFor(base)
	if err := consumeDiscount(tx, discount.ID); err != nil {
		return err
	}

	subtotals := make([]decimal.Decimal, len(eligible))
	for i, l := range eligible {
		subtotals[i] = l.subtotal
	}
	for i, share := range spreadAmount(amount, subtotals) {
		eligible[i].discount = share
	}
	return nil
}

// spreadAmount splits amount across weights proportionally in cents. The
// shares sum to amount and each share stays within [0, weight] as long as
// amount does not exceed the total weight.
func spreadAmount(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	total := decimal.Sum(decimal.Zero, weights...)
	if !total.IsPositive() || !amount.IsPositive() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}

	allocated := decimal.Zero
	for i, w := range weights {
		share := models.Money(amount.Mul(w).Div(total))
		share = decimal.Min(decimal.Max(share, decimal.Zero), w)
		shares[i] = share
		allocated = allocated.Add(share)
	}

	// Rounding leftovers, a few cents at most
	rest := amount.Sub(allocated)
	for i := 0; i < len(shares) && !rest.IsZero(); i++ {
		if rest.IsPositive() {
			add := decimal.Min(weights[i].Sub(shares[i]), rest)
			shares[i] = shares[i].Add(add)
			rest = rest.Sub(add)
		} else {
			take := decimal.Min(shares[i], rest.Neg())
			shares[i] = shares[i].Sub(take)
			rest = rest.Add(take)
		}
	}
	return shares
}
