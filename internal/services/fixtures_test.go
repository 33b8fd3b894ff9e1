package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/database"
	"subtrack-api/internal/models"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDay = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

// newTestDB opens a private in-memory database and pins the service clock
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	pinClock(t, testDay)
	return db
}

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "not an application error: %v", err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	hash, err := HashPassword("Secret@123")
	require.NoError(t, err)
	user := models.User{Email: email, HashedPassword: hash, FullName: "Test " + string(role), Role: role, IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) models.Product {
	t.Helper()
	p := models.Product{Name: name, ProductType: models.ProductTypeService, SalesPrice: dec(price), CostPrice: decimal.Zero, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedPlan(t *testing.T, db *gorm.DB, mutate func(*models.RecurringPlan)) models.RecurringPlan {
	t.Helper()
	plan := models.RecurringPlan{
		Name:          "Monthly",
		Price:         dec("10"),
		BillingPeriod: models.BillingMonthly,
		MinQuantity:   1,
		Closable:      true,
		Pausable:      true,
		Renewable:     true,
	}
	if mutate != nil {
		mutate(&plan)
	}
	require.NoError(t, db.Create(&plan).Error)
	return plan
}

func seedTax(t *testing.T, db *gorm.DB, rate string) models.Tax {
	t.Helper()
	tax := models.Tax{Name: "VAT " + rate, TaxType: "vat", Rate: dec(rate), IsActive: true}
	require.NoError(t, db.Create(&tax).Error)
	return tax
}

func seedDiscount(t *testing.T, db *gorm.DB, name string, kind models.DiscountType, value string, mutate func(*models.Discount)) models.Discount {
	t.Helper()
	d := models.Discount{Name: name, DiscountType: kind, Value: dec(value), MinPurchase: decimal.Zero, IsActive: true}
	if mutate != nil {
		mutate(&d)
	}
	require.NoError(t, db.Omit("Products.*").Create(&d).Error)
	return d
}

// activeSubscription creates a subscription and walks it to active
func activeSubscription(t *testing.T, db *gorm.DB, customer models.User, plan models.RecurringPlan, lines ...SubscriptionLineInput) *models.Subscription {
	t.Helper()
	svc := NewSubscriptionService(db)
	ctx := context.Background()

	sub, err := svc.Create(ctx, SubscriptionInput{CustomerID: customer.ID, PlanID: plan.ID, Lines: lines})
	require.NoError(t, err)
	for _, action := range []string{ActionToQuotation, ActionConfirm, ActionActivate} {
		sub, err = svc.Transition(ctx, sub.ID, action)
		require.NoError(t, err)
	}
	require.Equal(t, models.SubscriptionActive, sub.Status)
	return sub
}

func uintPtr(v uint) *uint { return &v }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
