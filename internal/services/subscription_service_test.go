package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubscriptionAssignsSequentialNumbers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "12.50")
	svc := NewSubscriptionService(db)

	for i, want := range []string{"SUB-0001", "SUB-0002", "SUB-0003"} {
		sub, err := svc.Create(ctx, SubscriptionInput{
			CustomerID: customer.ID,
			PlanID:     plan.ID,
			Lines:      []SubscriptionLineInput{{ProductID: product.ID, Quantity: i + 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, want, sub.SubscriptionNumber)
		assert.Equal(t, models.SubscriptionDraft, sub.Status)
		assert.Equal(t, "2024-03-15", sub.StartDate.Format("2006-01-02"))
		require.Len(t, sub.Lines, 1)
		assertMoney(t, "12.50", sub.Lines[0].UnitPrice)
	}
}

func TestCreateSubscriptionValidatesReferences(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, func(p *models.RecurringPlan) { p.MinQuantity = 5 })
	product := seedProduct(t, db, "Seat", "1")
	svc := NewSubscriptionService(db)

	_, err := svc.Create(ctx, SubscriptionInput{CustomerID: 9999, PlanID: plan.ID})
	assertKind(t, err, apperror.KindNotFound)

	_, err = svc.Create(ctx, SubscriptionInput{CustomerID: customer.ID})
	assertKind(t, err, apperror.KindValidation)

	_, err = svc.Create(ctx, SubscriptionInput{
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		Lines:      []SubscriptionLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	assertKind(t, err, apperror.KindBadRequest)

	_, err = svc.Create(ctx, SubscriptionInput{
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		Lines:      []SubscriptionLineInput{{ProductID: product.ID, Quantity: 5, TaxID: uintPtr(42)}},
	})
	assertKind(t, err, apperror.KindNotFound)
}

func TestCreateSubscriptionFromTemplate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "30")

	validity := 14
	tmpl, err := NewTemplateService(db).Create(ctx, TemplateInput{
		Name:            "Starter",
		ValidityDays:    &validity,
		RecurringPlanID: &plan.ID,
		Lines:           []TemplateLineInput{{ProductID: product.ID, Quantity: 3, UnitPrice: decPtr("25")}},
	})
	require.NoError(t, err)

	sub, err := NewSubscriptionService(db).Create(ctx, SubscriptionInput{CustomerID: customer.ID, TemplateID: &tmpl.ID})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, sub.PlanID)
	require.Len(t, sub.Lines, 1)
	assert.Equal(t, 3, sub.Lines[0].Quantity)
	assertMoney(t, "25", sub.Lines[0].UnitPrice)
	assertMoney(t, "75", sub.Lines[0].Amount)
	require.NotNil(t, sub.ExpirationDate)
	assert.Equal(t, "2024-03-29", sub.ExpirationDate.Format("2006-01-02"))
}

func TestSubscriptionLinesOnlyChangeWhileEditable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	sub, err := svc.Create(ctx, SubscriptionInput{CustomerID: customer.ID, PlanID: plan.ID})
	require.NoError(t, err)

	line, err := svc.AddLine(ctx, sub.ID, SubscriptionLineInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	assertMoney(t, "20", line.Amount)

	qty := 4
	line, err = svc.UpdateLine(ctx, sub.ID, line.ID, SubscriptionLineUpdate{Quantity: &qty, UnitPrice: decPtr("7.25")})
	require.NoError(t, err)
	assertMoney(t, "29", line.Amount)

	_, err = svc.Transition(ctx, sub.ID, ActionToQuotation)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, sub.ID, ActionConfirm)
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, sub.ID, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})
	assertKind(t, err, apperror.KindBadRequest)
	_, err = svc.UpdateLine(ctx, sub.ID, line.ID, SubscriptionLineUpdate{Quantity: &qty})
	assertKind(t, err, apperror.KindBadRequest)
	assertKind(t, svc.DeleteLine(ctx, sub.ID, line.ID), apperror.KindBadRequest)

	notes := "late edit"
	_, err = svc.Update(ctx, sub.ID, SubscriptionUpdate{Notes: &notes})
	assertKind(t, err, apperror.KindBadRequest)
	assertKind(t, svc.Delete(ctx, sub.ID), apperror.KindBadRequest)
}

func TestTransitionSideEffects(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})
	require.NotNil(t, sub.NextInvoiceDate)
	assert.Equal(t, sub.StartDate.Format("2006-01-02"), sub.NextInvoiceDate.Format("2006-01-02"))

	paused, err := svc.Transition(ctx, sub.ID, ActionPause)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPaused, paused.Status)

	_, err = svc.Transition(ctx, sub.ID, ActionPause)
	assertKind(t, err, apperror.KindBadRequest)
	assert.Contains(t, err.Error(), "expected active")

	_, err = svc.Transition(ctx, sub.ID, "explode")
	assertKind(t, err, apperror.KindBadRequest)

	_, err = svc.Transition(ctx, sub.ID, ActionResume)
	require.NoError(t, err)
	closed, err := svc.Transition(ctx, sub.ID, ActionClose)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionClosed, closed.Status)
}

func TestCancelClosesOpenInvoices(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	sub, err := svc.Create(ctx, SubscriptionInput{
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		Lines:      []SubscriptionLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	for _, action := range []string{ActionToQuotation, ActionConfirm} {
		_, err = svc.Transition(ctx, sub.ID, action)
		require.NoError(t, err)
	}

	invoices := NewInvoiceService(db, nil, 30)
	inv, err := invoices.Generate(ctx, sub.ID)
	require.NoError(t, err)

	cancelled, err := svc.Transition(ctx, sub.ID, ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionClosed, cancelled.Status)

	after, err := invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, after.Status)
}

func TestPlanFlagsGateTransitions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, func(p *models.RecurringPlan) {
		p.Pausable = false
		p.Closable = false
	})
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})

	_, err := svc.Transition(ctx, sub.ID, ActionPause)
	assertKind(t, err, apperror.KindBadRequest)
	assert.Contains(t, err.Error(), "This plan does not allow pausing")

	_, err = svc.Transition(ctx, sub.ID, ActionClose)
	assertKind(t, err, apperror.KindBadRequest)
}

func TestRenewCopiesLinesIntoNewDraft(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	vat := seedTax(t, db, "20")
	svc := NewSubscriptionService(db)

	sub := activeSubscription(t, db, customer, plan,
		SubscriptionLineInput{ProductID: product.ID, Quantity: 3, UnitPrice: decPtr("9"), TaxID: &vat.ID})

	_, err := svc.Renew(ctx, sub.ID)
	assertKind(t, err, apperror.KindBadRequest)

	_, err = svc.Transition(ctx, sub.ID, ActionClose)
	require.NoError(t, err)

	renewal, err := svc.Renew(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionDraft, renewal.Status)
	assert.Equal(t, "SUB-0002", renewal.SubscriptionNumber)
	require.NotNil(t, renewal.ParentID)
	assert.Equal(t, sub.ID, *renewal.ParentID)
	assert.Equal(t, "Renewal of SUB-0001", renewal.Notes)
	require.Len(t, renewal.Lines, 1)
	assert.Equal(t, product.ID, renewal.Lines[0].ProductID)
	assert.Equal(t, 3, renewal.Lines[0].Quantity)
	assertMoney(t, "9", renewal.Lines[0].UnitPrice)
	require.NotNil(t, renewal.Lines[0].TaxID)
	assert.Equal(t, vat.ID, *renewal.Lines[0].TaxID)

	history, err := svc.History(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sub.ID, history[0].ID)
	assert.Equal(t, renewal.ID, history[1].ID)

	history, err = svc.History(ctx, renewal.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sub.ID, history[0].ID)
	assert.Equal(t, renewal.ID, history[1].ID)
}

func TestRenewRequiresRenewablePlan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, func(p *models.RecurringPlan) { p.Renewable = false })
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})
	_, err := svc.Transition(ctx, sub.ID, ActionClose)
	require.NoError(t, err)

	_, err = svc.Renew(ctx, sub.ID)
	assertKind(t, err, apperror.KindBadRequest)
	assert.Contains(t, err.Error(), "does not allow renewal")
}

func TestUpsellRequiresActive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	draft, err := svc.Create(ctx, SubscriptionInput{CustomerID: customer.ID, PlanID: plan.ID})
	require.NoError(t, err)
	_, err = svc.Upsell(ctx, draft.ID)
	assertKind(t, err, apperror.KindBadRequest)

	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})
	upsell, err := svc.Upsell(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Upsell of "+sub.SubscriptionNumber, upsell.Notes)
	assert.Equal(t, models.SubscriptionDraft, upsell.Status)
}

func TestDeleteDraftSubscription(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	svc := NewSubscriptionService(db)

	sub, err := svc.Create(ctx, SubscriptionInput{
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		Lines:      []SubscriptionLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, sub.ID))

	_, err = svc.Get(ctx, sub.ID)
	assertKind(t, err, apperror.KindNotFound)
	var lines int64
	require.NoError(t, db.Model(&models.SubscriptionLine{}).Count(&lines).Error)
	assert.Zero(t, lines)
}
