package services

import (
	"context"
	"sort"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService aggregates billing figures for staff. Sums are computed over
// decimal values in Go so SQLite and PostgreSQL agree to the cent.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// DateRange bounds a report by day, both ends inclusive and optional
type DateRange struct {
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
}

func (r DateRange) apply(q *gorm.DB, column string) *gorm.DB {
	if r.StartDate != nil {
		q = q.Where(column+" >= ?", models.DateOf(*r.StartDate))
	}
	if r.EndDate != nil {
		q = q.Where(column+" <= ?", models.DateOf(*r.EndDate))
	}
	return q
}

func (r DateRange) check() error {
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return apperror.BadRequest("end_date must not be before start_date")
	}
	return nil
}

type ActiveSubscriptionsReport struct {
	TotalActive   int64                 `json:"total_active"`
	Subscriptions []models.Subscription `json:"subscriptions"`
}

type RevenueReport struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	InvoiceCount int             `json:"invoice_count"`
	PeriodStart  *time.Time      `json:"period_start"`
	PeriodEnd    *time.Time      `json:"period_end"`
}

type MethodTotal struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type PaymentsSummaryReport struct {
	TotalAmount decimal.Decimal        `json:"total_amount"`
	Count       int                    `json:"count"`
	ByMethod    map[string]MethodTotal `json:"by_method"`
}

type OverdueInvoice struct {
	ID            uint            `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uint            `json:"customer_id"`
	Total         decimal.Decimal `json:"total"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	DueDate       *time.Time      `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
}

type OverdueInvoicesReport struct {
	Count       int              `json:"count"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Invoices    []OverdueInvoice `json:"invoices"`
}

type DashboardReport struct {
	ActiveSubscriptions int64           `json:"active_subscriptions"`
	DraftInvoices       int64           `json:"draft_invoices"`
	ConfirmedInvoices   int64           `json:"confirmed_invoices"`
	PaidInvoices        int64           `json:"paid_invoices"`
	OverdueInvoices     int             `json:"overdue_invoices"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
}

func (s *ReportService) ActiveSubscriptions(ctx context.Context) (*ActiveSubscriptionsReport, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ?", models.SubscriptionActive).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return &ActiveSubscriptionsReport{TotalActive: int64(len(subs)), Subscriptions: subs}, nil
}

// Revenue sums the totals of paid invoices issued inside the range
func (s *ReportService) Revenue(ctx context.Context, r DateRange) (*RevenueReport, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("status = ?", models.InvoicePaid)
	var totals []decimal.Decimal
	if err := r.apply(q, "issue_date").Pluck("total", &totals).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}
	return &RevenueReport{
		TotalRevenue: decimal.Sum(decimal.Zero, totals...),
		InvoiceCount: len(totals),
		PeriodStart:  optionalDate(r.StartDate),
		PeriodEnd:    optionalDate(r.EndDate),
	}, nil
}

func (s *ReportService) PaymentsSummary(ctx context.Context, r DateRange) (*PaymentsSummaryReport, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	var payments []models.Payment
	q := s.db.WithContext(ctx).Select("id", "payment_method", "amount")
	if err := r.apply(q, "payment_date").Find(&payments).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}

	report := &PaymentsSummaryReport{TotalAmount: decimal.Zero, ByMethod: map[string]MethodTotal{}}
	for _, p := range payments {
		report.TotalAmount = report.TotalAmount.Add(p.Amount)
		report.Count++
		m := report.ByMethod[p.PaymentMethod]
		m.Total = m.Total.Add(p.Amount)
		m.Count++
		report.ByMethod[p.PaymentMethod] = m
	}
	return report, nil
}

// OverdueInvoices lists confirmed invoices whose due date has passed,
// oldest first, with what is still owed on each
func (s *ReportService) OverdueInvoices(ctx context.Context) (*OverdueInvoicesReport, error) {
	invoices, err := s.overdue(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	day := today()
	report := &OverdueInvoicesReport{TotalAmount: decimal.Zero, Invoices: make([]OverdueInvoice, 0, len(invoices))}
	for _, inv := range invoices {
		paid := decimal.Zero
		for _, p := range inv.Payments {
			paid = paid.Add(p.Amount)
		}
		outstanding := inv.Total.Sub(paid)
		report.TotalAmount = report.TotalAmount.Add(outstanding)
		report.Invoices = append(report.Invoices, OverdueInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerID:    inv.CustomerID,
			Total:         inv.Total,
			Outstanding:   outstanding,
			DueDate:       inv.DueDate,
			DaysOverdue:   int(day.Sub(models.DateOf(*inv.DueDate)).Hours() / 24),
		})
	}
	report.Count = len(report.Invoices)
	sort.SliceStable(report.Invoices, func(i, j int) bool {
		return report.Invoices[i].DaysOverdue > report.Invoices[j].DaysOverdue
	})
	return report, nil
}

func (s *ReportService) overdue(db *gorm.DB) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := db.Preload("Payments").
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.InvoiceConfirmed, today()).
		Order("id").
		Find(&invoices).Error
	return invoices, apperror.FromDB(err, "")
}

func (s *ReportService) Dashboard(ctx context.Context) (*DashboardReport, error) {
	db := s.db.WithContext(ctx)
	report := &DashboardReport{}

	if err := db.Model(&models.Subscription{}).Where("status = ?", models.SubscriptionActive).
		Count(&report.ActiveSubscriptions).Error; err != nil {
		return nil, apperror.FromDB(err, "")
	}

	counts := map[models.InvoiceStatus]*int64{
		models.InvoiceDraft:     &report.DraftInvoices,
		models.InvoiceConfirmed: &report.ConfirmedInvoices,
		models.InvoicePaid:      &report.PaidInvoices,
	}
	for status, dst := range counts {
		if err := db.Model(&models.Invoice{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, apperror.FromDB(err, "")
		}
	}

	overdue, err := s.overdue(db)
	if err != nil {
		return nil, err
	}
	report.OverdueInvoices = len(overdue)

	revenue, err := s.Revenue(ctx, DateRange{})
	if err != nil {
		return nil, err
	}
	report.TotalRevenue = revenue.TotalRevenue
	return report, nil
}
