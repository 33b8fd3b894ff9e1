package services

import (
	"context"
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"subtrack-api/pkg/logging"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService records money received against confirmed invoices
type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

type PaymentInput struct {
	InvoiceID     uint            `json:"invoice_id" validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=50"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   *time.Time      `json:"payment_date"`
	Reference     string          `json:"reference" validate:"max=100"`
	Notes         string          `json:"notes"`
}

// PayInvoiceInput is the portal shortcut; amount defaults to the open balance
type PayInvoiceInput struct {
	PaymentMethod string           `json:"payment_method" validate:"max=50"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentDate   *time.Time       `json:"payment_date"`
}

type PaymentFilter struct {
	InvoiceID  uint `form:"invoice_id"`
	CustomerID uint `form:"customer_id"`
	Page
}

// Record stores a payment and marks the invoice paid once the sum covers its total
func (s *PaymentService) Record(ctx context.Context, in PaymentInput, recordedBy *uint) (*models.Payment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, in.InvoiceID)
		if err != nil {
			return err
		}
		payment, err = recordPayment(tx, invoice, paymentRequest{
			method:     in.PaymentMethod,
			amount:     in.Amount,
			date:       dateOrToday(in.PaymentDate),
			reference:  in.Reference,
			notes:      in.Notes,
			recordedBy: recordedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// PayInvoice pays a confirmed invoice, by default for its full open balance
func (s *PaymentService) PayInvoice(ctx context.Context, invoiceID uint, in PayInvoiceInput, recordedBy *uint) (*models.Payment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var payment *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		amount := decimal.Zero
		if in.Amount != nil {
			amount = *in.Amount
		} else {
			paid, err := paidAmount(tx, invoice.ID)
			if err != nil {
				return err
			}
			amount = invoice.Total.Sub(paid)
		}
		method := strings.TrimSpace(in.PaymentMethod)
		if method == "" {
			method = models.DefaultPaymentMethod
		}
		payment, err = recordPayment(tx, invoice, paymentRequest{
			method:     method,
			amount:     amount,
			date:       dateOrToday(in.PaymentDate),
			recordedBy: recordedBy,
			// a zero-total invoice settles with a zero payment
			allowZero: in.Amount == nil && amount.IsZero(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

type paymentRequest struct {
	method     string
	amount     decimal.Decimal
	date       time.Time
	reference  string
	notes      string
	recordedBy *uint

	// allowZero lets a fully discounted invoice be settled
	allowZero bool
}

// recordPayment expects invoice to be locked by the caller's transaction
func recordPayment(tx *gorm.DB, invoice *models.Invoice, req paymentRequest) (*models.Payment, error) {
	amount := models.Money(req.amount)
	if amount.IsNegative() || (amount.IsZero() && !req.allowZero) {
		return nil, apperror.BadRequest("Payment amount must be greater than 0")
	}
	if invoice.Status != models.InvoiceConfirmed {
		return nil, apperror.BadRequest("Can only pay CONFIRMED invoices")
	}

	payment := &models.Payment{
		InvoiceID:     invoice.ID,
		UserID:        req.recordedBy,
		PaymentMethod: req.method,
		Amount:        amount,
		PaymentDate:   models.DateOf(req.date),
		Reference:     req.reference,
		Notes:         req.notes,
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}

	paid, err := paidAmount(tx, invoice.ID)
	if err != nil {
		return nil, err
	}
	if paid.GreaterThanOrEqual(invoice.Total) {
		if paid.GreaterThan(invoice.Total) {
			logging.Warnf("Invoice %s overpaid: total %s, paid %s",
				invoice.InvoiceNumber, invoice.Total.StringFixed(2), paid.StringFixed(2))
		}
		err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("status", models.InvoicePaid).Error
		if err != nil {
			return nil, apperror.FromDB(err, "")
		}
		invoice.Status = models.InvoicePaid
	}
	return payment, nil
}

// paidAmount sums the payments of an invoice
func paidAmount(tx *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := tx.Model(&models.Payment{}).Where("invoice_id = ?", invoiceID).Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, apperror.FromDB(err, "")
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func (s *PaymentService) List(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if f.InvoiceID != 0 {
		q = q.Where("payment.invoice_id = ?", f.InvoiceID)
	}
	if f.CustomerID != 0 {
		q = q.Joins("JOIN invoice ON invoice.id = payment.invoice_id").
			Where("invoice.customer_id = ?", f.CustomerID)
	}
	var payments []models.Payment
	err := q.Order("payment.id").Offset(p.Skip).Limit(p.Limit).Find(&payments).Error
	return payments, apperror.FromDB(err, "")
}

func (s *PaymentService) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Take(&payment, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Payment not found")
	}
	return &payment, nil
}

// InvoiceOwner returns the customer of the invoice a payment belongs to
func (s *PaymentService) InvoiceOwner(ctx context.Context, invoiceID uint) (uint, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).Select("id", "customer_id").Take(&invoice, invoiceID).Error; err != nil {
		return 0, apperror.FromDB(err, "Invoice not found")
	}
	return invoice.CustomerID, nil
}
