package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductListingHidesInactive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewProductService(db)

	keep, err := svc.Create(ctx, ProductInput{Name: "Gold Plan Seat", SalesPrice: dec("49.999")})
	require.NoError(t, err)
	assertMoney(t, "50", keep.SalesPrice)
	retire, err := svc.Create(ctx, ProductInput{Name: "Legacy Seat", SalesPrice: dec("10")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ProductInput{Name: "Broken", SalesPrice: dec("-1")})
	assertKind(t, err, apperror.KindValidation)

	require.NoError(t, svc.Deactivate(ctx, retire.ID))

	visible, err := svc.List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, keep.ID, visible[0].ID)

	everything, err := svc.List(ctx, ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, everything, 2)

	found, err := svc.List(ctx, ProductFilter{IncludeInactive: true, Search: "legacy"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, retire.ID, found[0].ID)

	// deactivated products stay readable
	got, err := svc.Get(ctx, retire.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestProductVariants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewProductService(db)
	product := seedProduct(t, db, "Shirt", "20")
	other := seedProduct(t, db, "Mug", "8")

	v, err := svc.CreateVariant(ctx, product.ID, VariantInput{Attribute: "Size", Value: "XL", ExtraPrice: dec("3")})
	require.NoError(t, err)
	assert.Equal(t, "Size: XL", v.Label())

	_, err = svc.UpdateVariant(ctx, other.ID, v.ID, VariantUpdate{ExtraPrice: decPtr("4")})
	assertKind(t, err, apperror.KindNotFound)

	v, err = svc.UpdateVariant(ctx, product.ID, v.ID, VariantUpdate{ExtraPrice: decPtr("4")})
	require.NoError(t, err)
	assertMoney(t, "4", v.ExtraPrice)

	list, err := svc.ListVariants(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteVariant(ctx, product.ID, v.ID))
	list, err = svc.ListVariants(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPlanDeleteRefusedWhileInUse(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewPlanService(db)

	plan, err := svc.Create(ctx, PlanInput{Name: "Yearly", Price: dec("100"), BillingPeriod: models.BillingYearly})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.MinQuantity)

	_, err = svc.Create(ctx, PlanInput{Name: "Odd", Price: dec("1"), BillingPeriod: "fortnightly"})
	assertKind(t, err, apperror.KindValidation)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(ctx, PlanInput{Name: "Backwards", Price: dec("1"), BillingPeriod: models.BillingDaily, StartDate: &start, EndDate: &end})
	assertKind(t, err, apperror.KindBadRequest)

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	_, err = NewSubscriptionService(db).Create(ctx, SubscriptionInput{CustomerID: customer.ID, PlanID: plan.ID})
	require.NoError(t, err)

	assertKind(t, svc.Delete(ctx, plan.ID), apperror.KindConflict)

	unused, err := svc.Create(ctx, PlanInput{Name: "Weekly", Price: dec("5"), BillingPeriod: models.BillingWeekly})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, unused.ID))
	_, err = svc.Get(ctx, unused.ID)
	assertKind(t, err, apperror.KindNotFound)
}

func TestTaxRateBounds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTaxService(db)

	_, err := svc.Create(ctx, TaxInput{Name: "Too much", Rate: dec("120")})
	assertKind(t, err, apperror.KindValidation)

	tax, err := svc.Create(ctx, TaxInput{Name: "GST", TaxType: "gst", Rate: dec("18")})
	require.NoError(t, err)
	assert.True(t, tax.IsActive)

	require.NoError(t, svc.Deactivate(ctx, tax.ID))
	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDiscountScopeAndCodeValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewDiscountService(db)
	a := seedProduct(t, db, "A", "10")
	b := seedProduct(t, db, "B", "10")

	limit := 2
	d, err := svc.Create(ctx, DiscountInput{
		Name:         "SPRING",
		DiscountType: models.DiscountPercentage,
		Value:        dec("15"),
		MinPurchase:  dec("100"),
		LimitUsage:   &limit,
		ProductIDs:   []uint{a.ID, a.ID},
	})
	require.NoError(t, err)
	require.Len(t, d.Products, 1)

	_, err = svc.Create(ctx, DiscountInput{Name: "SPRING", DiscountType: models.DiscountFixed, Value: dec("1")})
	assertKind(t, err, apperror.KindConflict)

	_, err = svc.Create(ctx, DiscountInput{Name: "HUGE", DiscountType: models.DiscountPercentage, Value: dec("150")})
	require.Error(t, err)

	check, err := svc.ValidateCode(ctx, ValidateCodeInput{Code: "SPRING", Subtotal: dec("200"), Quantity: 1})
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assertMoney(t, "30", check.DiscountAmount)

	check, err = svc.ValidateCode(ctx, ValidateCodeInput{Code: "SPRING", Subtotal: dec("50"), Quantity: 1})
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Contains(t, check.Message, "Minimum purchase of 100.00")

	check, err = svc.ValidateCode(ctx, ValidateCodeInput{Code: "WINTER", Subtotal: dec("50")})
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, "Invalid discount code", check.Message)

	updated, err := svc.Update(ctx, d.ID, DiscountUpdate{ProductIDs: []uint{b.ID}})
	require.NoError(t, err)
	require.Len(t, updated.Products, 1)
	assert.Equal(t, b.ID, updated.Products[0].ID)

	updated, err = svc.Update(ctx, d.ID, DiscountUpdate{ProductIDs: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Products)

	require.NoError(t, svc.Deactivate(ctx, d.ID))
	check, err = svc.ValidateCode(ctx, ValidateCodeInput{Code: "SPRING", Subtotal: dec("200")})
	require.NoError(t, err)
	assert.False(t, check.Valid)
}

func TestConsumeDiscountStopsAtLimit(t *testing.T) {
	db := newTestDB(t)
	limit := 2
	d := seedDiscount(t, db, "TWICE", models.DiscountFixed, "1", func(d *models.Discount) { d.LimitUsage = &limit })

	require.NoError(t, consumeDiscount(db, d.ID))
	require.NoError(t, consumeDiscount(db, d.ID))
	assertKind(t, consumeDiscount(db, d.ID), apperror.KindBadRequest)

	var got models.Discount
	require.NoError(t, db.Take(&got, d.ID).Error)
	assert.Equal(t, 2, got.UsageCount)
}
