package services

import (
	"context"
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []InvoiceEmail
	err  error
}

func (m *recordingMailer) SendInvoice(_ context.Context, email InvoiceEmail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func TestGenerateInvoiceComputesLineAndHeaderTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	seat := seedProduct(t, db, "Seat", "100")
	addon := seedProduct(t, db, "Addon", "19.99")
	vat := seedTax(t, db, "10")
	promo := seedDiscount(t, db, "PROMO10", models.DiscountPercentage, "10", nil)

	sub := activeSubscription(t, db, customer, plan,
		SubscriptionLineInput{ProductID: seat.ID, Quantity: 2, TaxID: &vat.ID, DiscountID: &promo.ID},
		SubscriptionLineInput{ProductID: addon.ID, Quantity: 3},
	)

	svc := NewInvoiceService(db, nil, 30)
	inv, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)

	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assert.Equal(t, customer.ID, inv.CustomerID)
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2024-04-14", inv.DueDate.Format("2006-01-02"))
	require.Len(t, inv.Lines, 2)

	seatLine := inv.Lines[0]
	assert.Equal(t, "Seat", seatLine.Description)
	assertMoney(t, "200", seatLine.Subtotal)
	assertMoney(t, "20", seatLine.DiscountAmount)
	assertMoney(t, "18", seatLine.TaxAmount)
	assertMoney(t, "198", seatLine.LineTotal)

	addonLine := inv.Lines[1]
	assertMoney(t, "59.97", addonLine.Subtotal)
	assertMoney(t, "0", addonLine.DiscountAmount)
	assertMoney(t, "59.97", addonLine.LineTotal)

	assertMoney(t, "259.97", inv.Subtotal)
	assertMoney(t, "20", inv.DiscountTotal)
	assertMoney(t, "18", inv.TaxTotal)
	assertMoney(t, "257.97", inv.Total)

	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.LineTotal)
	}
	assertMoney(t, inv.Total.String(), sum)

	var used models.Discount
	require.NoError(t, db.Take(&used, promo.ID).Error)
	assert.Equal(t, 1, used.UsageCount)

	var advanced models.Subscription
	require.NoError(t, db.Take(&advanced, sub.ID).Error)
	require.NotNil(t, advanced.NextInvoiceDate)
	assert.Equal(t, "2024-04-14", advanced.NextInvoiceDate.Format("2006-01-02"))

	second, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", second.InvoiceNumber)
}

func TestGenerateSkipsExhaustedDiscount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "50")
	once := 1
	promo := seedDiscount(t, db, "ONCE", models.DiscountFixed, "5", func(d *models.Discount) { d.LimitUsage = &once })

	sub := activeSubscription(t, db, customer, plan,
		SubscriptionLineInput{ProductID: product.ID, Quantity: 1, DiscountID: &promo.ID},
		SubscriptionLineInput{ProductID: product.ID, Quantity: 1, DiscountID: &promo.ID},
	)

	inv, err := NewInvoiceService(db, nil, 30).Generate(ctx, sub.ID)
	require.NoError(t, err)
	assertMoney(t, "5", inv.Lines[0].DiscountAmount)
	assertMoney(t, "0", inv.Lines[1].DiscountAmount)
	assertMoney(t, "95", inv.Total)

	var used models.Discount
	require.NoError(t, db.Take(&used, promo.ID).Error)
	assert.Equal(t, 1, used.UsageCount)
}

func TestGenerateRequiresActiveOrConfirmedSubscription(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")

	sub, err := NewSubscriptionService(db).Create(ctx, SubscriptionInput{
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		Lines:      []SubscriptionLineInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = NewInvoiceService(db, nil, 30).Generate(ctx, sub.ID)
	assertKind(t, err, apperror.KindBadRequest)

	_, err = NewInvoiceService(db, nil, 30).Generate(ctx, 9999)
	assertKind(t, err, apperror.KindNotFound)
}

func TestInvoiceStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})

	svc := NewInvoiceService(db, nil, 30)
	inv, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)

	_, err = svc.BackToDraft(ctx, inv.ID)
	assertKind(t, err, apperror.KindBadRequest)

	inv, err = svc.Confirm(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceConfirmed, inv.Status)

	_, err = svc.Confirm(ctx, inv.ID)
	assertKind(t, err, apperror.KindBadRequest)
	assert.Contains(t, err.Error(), "Only DRAFT invoices can be confirmed")

	inv, err = svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, inv.Status)

	_, err = svc.Cancel(ctx, inv.ID)
	assertKind(t, err, apperror.KindBadRequest)

	inv, err = svc.BackToDraft(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceDraft, inv.Status)

	require.NoError(t, svc.Delete(ctx, inv.ID))
	_, err = svc.Get(ctx, inv.ID)
	assertKind(t, err, apperror.KindNotFound)

	var lines int64
	require.NoError(t, db.Model(&models.InvoiceLine{}).Where("invoice_id = ?", inv.ID).Count(&lines).Error)
	assert.Zero(t, lines)
}

func TestInvoiceWithPaymentsCannotBeReopenedOrDeleted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})

	svc := NewInvoiceService(db, nil, 30)
	inv, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, inv.ID)
	require.NoError(t, err)

	_, err = NewPaymentService(db).Record(ctx, PaymentInput{InvoiceID: inv.ID, PaymentMethod: "cash", Amount: dec("4")}, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	_, err = svc.BackToDraft(ctx, inv.ID)
	assertKind(t, err, apperror.KindBadRequest)
	assertKind(t, svc.Delete(ctx, inv.ID), apperror.KindBadRequest)
}

func TestSendInvoice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})

	mailer := &recordingMailer{}
	svc := NewInvoiceService(db, mailer, 30)
	inv, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)

	_, err = svc.Send(ctx, inv.ID)
	assertKind(t, err, apperror.KindBadRequest)
	assert.Empty(t, mailer.sent)

	_, err = svc.Confirm(ctx, inv.ID)
	require.NoError(t, err)

	msg, err := svc.Send(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice INV-0001 marked as sent", msg)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "buyer@example.com", mailer.sent[0].ToEmail)
	assert.Equal(t, "INV-0001.txt", mailer.sent[0].AttachmentName)
	assert.Contains(t, string(mailer.sent[0].Attachment), "INVOICE INV-0001")

	sent, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.NotNil(t, sent.SentAt)
}

func TestSendInvoiceMailerFailureLeavesUnsent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})

	svc := NewInvoiceService(db, &recordingMailer{err: assert.AnError}, 30)
	inv, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, inv.ID)
	require.NoError(t, err)

	_, err = svc.Send(ctx, inv.ID)
	assertKind(t, err, apperror.KindInternal)

	unsent, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, unsent.SentAt)
}

func TestInvoiceDocument(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	customer := seedUser(t, db, "buyer@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Consulting hour", "80")
	sub := activeSubscription(t, db, customer, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 3})

	svc := NewInvoiceService(db, nil, 30)
	inv, err := svc.Generate(ctx, sub.ID)
	require.NoError(t, err)

	name, content, err := svc.Document(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001.txt", name)

	text := string(content)
	assert.True(t, strings.HasPrefix(text, "INVOICE INV-0001\n"))
	assert.Contains(t, text, sub.SubscriptionNumber)
	assert.Contains(t, text, "Consulting hour")
	assert.Contains(t, text, "240.00")
	assert.Contains(t, text, "buyer@example.com")
}

func TestListInvoicesFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, db, "alice@example.com", models.RolePortal)
	bob := seedUser(t, db, "bob@example.com", models.RolePortal)
	plan := seedPlan(t, db, nil)
	product := seedProduct(t, db, "Seat", "10")
	subA := activeSubscription(t, db, alice, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})
	subB := activeSubscription(t, db, bob, plan, SubscriptionLineInput{ProductID: product.ID, Quantity: 1})

	svc := NewInvoiceService(db, nil, 30)
	invA, err := svc.Generate(ctx, subA.ID)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, subB.ID)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, invA.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(ctx, InvoiceFilter{CustomerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, invA.ID, mine[0].ID)

	drafts, err := svc.List(ctx, InvoiceFilter{Status: models.InvoiceDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, bob.ID, drafts[0].CustomerID)
}
