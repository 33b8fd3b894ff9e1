package services

import (
	"context"
	"errors"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/database"
	"subtrack-api/internal/models"
	"subtrack-api/pkg/logging"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoicePrefix = "INV"

// InvoiceService generates invoices from subscriptions and moves them through their lifecycle
type InvoiceService struct {
	db      *gorm.DB
	mailer  Mailer
	dueDays int
}

// NewInvoiceService accepts a nil mailer; sending then only marks the invoice
func NewInvoiceService(db *gorm.DB, mailer Mailer, dueDays int) *InvoiceService {
	if dueDays <= 0 {
		dueDays = 30
	}
	return &InvoiceService{db: db, mailer: mailer, dueDays: dueDays}
}

type InvoiceFilter struct {
	Status         models.InvoiceStatus `form:"status"`
	CustomerID     uint                 `form:"customer_id"`
	SubscriptionID uint                 `form:"subscription_id"`
	Page
}

// Generate bills every line of an active or confirmed subscription into a new draft invoice
func (s *InvoiceService) Generate(ctx context.Context, subscriptionID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := lockSubscription(tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionConfirmed {
			return apperror.BadRequest("Subscription must be ACTIVE or CONFIRMED to generate invoice")
		}

		var lines []models.SubscriptionLine
		if err := tx.Preload("Product").Where("subscription_id = ?", sub.ID).Order("id").Find(&lines).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		if len(lines) == 0 {
			return apperror.BadRequest("Subscription has no lines to invoice")
		}

		var plan models.RecurringPlan
		if err := tx.Take(&plan, sub.PlanID).Error; err != nil {
			return apperror.FromDB(err, "Recurring plan not found")
		}

		number, err := database.NextSequence(tx, invoicePrefix, &models.Invoice{}, "invoice_number")
		if err != nil {
			return apperror.FromDB(err, "")
		}

		issued := today()
		due := issued.AddDate(0, 0, s.dueDays)
		invoice = models.Invoice{
			InvoiceNumber:  number,
			SubscriptionID: sub.ID,
			CustomerID:     sub.CustomerID,
			Status:         models.InvoiceDraft,
			IssueDate:      issued,
			DueDate:        &due,
		}

		pricer := newLinePricer(tx, issued)
		for _, l := range lines {
			line, err := pricer.price(l)
			if err != nil {
				return err
			}
			invoice.Lines = append(invoice.Lines, *line)
		}
		invoice.ApplyTotals()

		if err := tx.Create(&invoice).Error; err != nil {
			return apperror.FromDB(err, "")
		}

		if sub.NextInvoiceDate != nil {
			next := plan.BillingPeriod.Advance(models.DateOf(*sub.NextInvoiceDate))
			if err := tx.Model(sub).Update("next_invoice_date", next).Error; err != nil {
				return apperror.FromDB(err, "")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, invoice.ID)
}

// linePricer turns subscription lines into invoice lines, caching the
// discounts and taxes they reference
type linePricer struct {
	tx        *gorm.DB
	day       time.Time
	discounts map[uint]*models.Discount
	taxes     map[uint]*models.Tax
}

func newLinePricer(tx *gorm.DB, day time.Time) *linePricer {
	return &linePricer{
		tx:        tx,
		day:       day,
		discounts: map[uint]*models.Discount{},
		taxes:     map[uint]*models.Tax{},
	}
}

// price computes subtotal, discount (capped at the subtotal), tax on the
// discounted amount and the line total. A usable discount is consumed once
// per line it reduces.
func (p *linePricer) price(l models.SubscriptionLine) (*models.InvoiceLine, error) {
	subtotal := models.LineAmount(l.Quantity, l.UnitPrice)
	discount := decimal.Zero

	if l.DiscountID != nil {
		d, err := p.discount(*l.DiscountID)
		if err != nil {
			return nil, err
		}
		if d != nil && d.Usable(p.day) && d.AppliesTo(l.ProductID) {
			amount := d.AmountFor(subtotal)
			if amount.IsPositive() {
				err := consumeDiscount(p.tx, d.ID)
				switch {
				case err == nil:
					d.UsageCount++
					discount = amount
				case apperror.IsKind(err, apperror.KindBadRequest):
					logging.Infof("Discount %s exhausted, billing line %d without it", d.Name, l.ID)
				default:
					return nil, err
				}
			}
		}
	}

	taxable := subtotal.Sub(discount)
	tax := decimal.Zero
	if l.TaxID != nil {
		t, err := p.tax(*l.TaxID)
		if err != nil {
			return nil, err
		}
		if t != nil && t.IsActive {
			tax = t.Amount(taxable)
		}
	}

	description := ""
	if l.Product != nil {
		description = l.Product.Name
	}

	return &models.InvoiceLine{
		ProductID:      l.ProductID,
		Description:    description,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		TaxID:          l.TaxID,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		LineTotal:      taxable.Add(tax),
	}, nil
}

func (p *linePricer) discount(id uint) (*models.Discount, error) {
	if d, ok := p.discounts[id]; ok {
		return d, nil
	}
	var d models.Discount
	err := p.tx.Preload("Products").Take(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.discounts[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	p.discounts[id] = &d
	return &d, nil
}

func (p *linePricer) tax(id uint) (*models.Tax, error) {
	if t, ok := p.taxes[id]; ok {
		return t, nil
	}
	var t models.Tax
	err := p.tx.Take(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.taxes[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	p.taxes[id] = &t
	return &t, nil
}

func (s *InvoiceService) List(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Invoice{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.SubscriptionID != 0 {
		q = q.Where("subscription_id = ?", f.SubscriptionID)
	}
	var invoices []models.Invoice
	err := q.Preload("Lines").Order("id").Offset(p.Skip).Limit(p.Limit).Find(&invoices).Error
	return invoices, apperror.FromDB(err, "")
}

func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return loadInvoice(s.db.WithContext(ctx), id)
}

func loadInvoice(tx *gorm.DB, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Take(&invoice, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "Invoice not found")
	}
	return &invoice, nil
}

// lockInvoice loads the row FOR UPDATE inside tx
func lockInvoice(tx *gorm.DB, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&invoice, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Invoice not found")
	}
	return &invoice, nil
}

// setStatus moves an invoice to status when its current status is in from
func (s *InvoiceService) setStatus(ctx context.Context, id uint, to models.InvoiceStatus, check func(*gorm.DB, *models.Invoice) error) (*models.Invoice, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if err := check(tx, invoice); err != nil {
			return err
		}
		return apperror.FromDB(tx.Model(invoice).Update("status", to).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *InvoiceService) Confirm(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.setStatus(ctx, id, models.InvoiceConfirmed, func(_ *gorm.DB, inv *models.Invoice) error {
		if inv.Status != models.InvoiceDraft {
			return apperror.BadRequest("Only DRAFT invoices can be confirmed")
		}
		return nil
	})
}

func (s *InvoiceService) Cancel(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.setStatus(ctx, id, models.InvoiceCancelled, func(_ *gorm.DB, inv *models.Invoice) error {
		if inv.Status != models.InvoiceDraft && inv.Status != models.InvoiceConfirmed {
			return apperror.BadRequest("Only DRAFT or CONFIRMED invoices can be cancelled")
		}
		return nil
	})
}

// BackToDraft reopens a confirmed or cancelled invoice that has no payments
func (s *InvoiceService) BackToDraft(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.setStatus(ctx, id, models.InvoiceDraft, func(tx *gorm.DB, inv *models.Invoice) error {
		if inv.Status != models.InvoiceConfirmed && inv.Status != models.InvoiceCancelled {
			return apperror.BadRequest("Only CONFIRMED or CANCELLED invoices can be set back to draft")
		}
		return requireNoPayments(tx, inv, "Invoice has payments and cannot be set back to draft")
	})
}

func requireNoPayments(tx *gorm.DB, inv *models.Invoice, message string) error {
	var count int64
	if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", inv.ID).Count(&count).Error; err != nil {
		return apperror.FromDB(err, "")
	}
	if count > 0 {
		return apperror.BadRequest(message)
	}
	return nil
}

// Delete removes a draft or cancelled invoice without payments
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, id)
		if err != nil {
			return err
		}
		if invoice.Status != models.InvoiceDraft && invoice.Status != models.InvoiceCancelled {
			return apperror.BadRequest("Only DRAFT or CANCELLED invoices can be deleted")
		}
		if err := requireNoPayments(tx, invoice, "Invoice has payments and cannot be deleted"); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLine{}).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		return apperror.FromDB(tx.Delete(invoice).Error, "")
	})
}

// Send emails the invoice document when a mailer is configured and records sent_at
func (s *InvoiceService) Send(ctx context.Context, id uint) (string, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if invoice.Status != models.InvoiceConfirmed && invoice.Status != models.InvoicePaid {
		return "", apperror.BadRequest("Only CONFIRMED or PAID invoices can be sent")
	}

	if s.mailer != nil {
		doc, err := s.document(ctx, invoice)
		if err != nil {
			return "", err
		}
		err = s.mailer.SendInvoice(ctx, InvoiceEmail{
			ToEmail:        doc.customer.Email,
			ToName:         doc.customer.FullName,
			Subject:        "Invoice " + invoice.InvoiceNumber,
			Body:           string(doc.content),
			AttachmentName: doc.filename,
			Attachment:     doc.content,
		})
		if err != nil {
			logging.Errorf("Failed to email invoice %s: %v", invoice.InvoiceNumber, err)
			return "", apperror.Internal(err, "Failed to send invoice email")
		}
	}

	err = s.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("sent_at", now()).Error
	if err != nil {
		return "", apperror.FromDB(err, "")
	}
	return "Invoice " + invoice.InvoiceNumber + " marked as sent", nil
}

// Document renders the plain-text invoice served as the "PDF" download
func (s *InvoiceService) Document(ctx context.Context, id uint) (string, []byte, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	doc, err := s.document(ctx, invoice)
	if err != nil {
		return "", nil, err
	}
	return doc.filename, doc.content, nil
}

type renderedInvoice struct {
	filename string
	content  []byte
	customer models.User
}

func (s *InvoiceService) document(ctx context.Context, invoice *models.Invoice) (*renderedInvoice, error) {
	db := s.db.WithContext(ctx)

	var customer models.User
	if err := db.Take(&customer, invoice.CustomerID).Error; err != nil {
		return nil, apperror.FromDB(err, "Customer not found")
	}
	var sub models.Subscription
	if err := db.Take(&sub, invoice.SubscriptionID).Error; err != nil {
		return nil, apperror.FromDB(err, "Subscription not found")
	}

	return &renderedInvoice{
		filename: invoice.InvoiceNumber + ".txt",
		content:  RenderInvoiceText(invoice, &customer, sub.SubscriptionNumber),
		customer: customer,
	}, nil
}
