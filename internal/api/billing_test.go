package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"subtrack-api/internal/models"
	"subtrack-api/internal/services"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalog creates a product priced at 100 and a monthly plan through the API
func (s *testServer) catalog(admin string) (models.Product, models.RecurringPlan) {
	s.t.Helper()
	var product models.Product
	env := s.call(http.MethodPost, "/products", admin,
		gin.H{"name": "Hosting", "product_type": "service", "sales_price": "100"}, http.StatusCreated)
	decode(s.t, env, &product)

	var plan models.RecurringPlan
	env = s.call(http.MethodPost, "/recurring-plans", admin,
		gin.H{"name": "Monthly", "price": "0", "billing_period": "monthly"}, http.StatusCreated)
	decode(s.t, env, &plan)
	return product, plan
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestSubscriptionToPaidInvoice(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.account("admin@example.com", models.RoleAdmin)
	_, internal := s.account("staff@example.com", models.RoleInternal)
	customer, portal := s.account("customer@example.com", models.RolePortal)
	_, stranger := s.account("stranger@example.com", models.RolePortal)
	product, plan := s.catalog(admin)

	env := s.call(http.MethodPost, "/subscriptions", internal, gin.H{
		"customer_id": customer.ID,
		"plan_id":     plan.ID,
		"lines":       []gin.H{{"product_id": product.ID, "quantity": 2}},
	}, http.StatusCreated)
	var sub models.Subscription
	decode(t, env, &sub)
	assert.Equal(t, "SUB-0001", sub.SubscriptionNumber)
	assert.Equal(t, models.SubscriptionDraft, sub.Status)

	subPath := fmt.Sprintf("/subscriptions/%d", sub.ID)
	s.call(http.MethodGet, subPath, portal, nil, http.StatusOK)
	s.call(http.MethodGet, subPath, stranger, nil, http.StatusForbidden)

	env = s.call(http.MethodPost, subPath+"/transition", internal, gin.H{"action": "activate"}, http.StatusBadRequest)
	assert.Contains(t, env.Message, "Cannot activate")
	for _, action := range []string{"to_quotation", "confirm", "activate"} {
		s.call(http.MethodPost, subPath+"/transition", internal, gin.H{"action": action}, http.StatusOK)
	}
	s.call(http.MethodPost, subPath+"/transition", portal, gin.H{"action": "pause"}, http.StatusForbidden)

	env = s.call(http.MethodPost, fmt.Sprintf("/invoices/generate/%d", sub.ID), internal, nil, http.StatusCreated)
	var invoice models.Invoice
	decode(t, env, &invoice)
	assert.Equal(t, "INV-0001", invoice.InvoiceNumber)
	assert.Equal(t, models.InvoiceDraft, invoice.Status)
	assertAmount(t, "200", invoice.Total)

	invoicePath := fmt.Sprintf("/invoices/%d", invoice.ID)

	// Portal users only ever see their own invoices
	env = s.call(http.MethodGet, "/invoices", portal, nil, http.StatusOK)
	var mine []models.Invoice
	decode(t, env, &mine)
	assert.Len(t, mine, 1)

	env = s.call(http.MethodGet, fmt.Sprintf("/invoices?customer_id=%d", customer.ID), stranger, nil, http.StatusOK)
	var theirs []models.Invoice
	decode(t, env, &theirs)
	assert.Empty(t, theirs)
	s.call(http.MethodGet, invoicePath, stranger, nil, http.StatusForbidden)

	env = s.call(http.MethodPost, invoicePath+"/pay", admin, nil, http.StatusBadRequest)
	assert.Equal(t, "Can only pay CONFIRMED invoices", env.Message)

	s.call(http.MethodPost, invoicePath+"/confirm", internal, nil, http.StatusOK)
	s.call(http.MethodPost, invoicePath+"/cancel", internal, nil, http.StatusForbidden)

	env = s.call(http.MethodPost, invoicePath+"/send", internal, nil, http.StatusOK)
	assert.Equal(t, "Invoice INV-0001 marked as sent", env.Message)

	w := s.request(http.MethodGet, invoicePath+"/pdf", portal, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="INV-0001.txt"`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "INVOICE INV-0001"))
	assert.Equal(t, http.StatusForbidden, s.request(http.MethodGet, invoicePath+"/pdf", stranger, nil).Code)

	env = s.call(http.MethodPost, "/payments", internal, gin.H{
		"invoice_id":     invoice.ID,
		"payment_method": "bank_transfer",
		"amount":         "50",
	}, http.StatusCreated)
	var partial models.Payment
	decode(t, env, &partial)

	env = s.call(http.MethodPost, invoicePath+"/pay", admin, nil, http.StatusOK)
	var paid struct {
		Invoice models.Invoice `json:"invoice"`
		Payment models.Payment `json:"payment"`
	}
	decode(t, env, &paid)
	assert.Equal(t, models.InvoicePaid, paid.Invoice.Status)
	assertAmount(t, "150", paid.Payment.Amount)
	assert.Equal(t, models.DefaultPaymentMethod, paid.Payment.PaymentMethod)

	env = s.call(http.MethodGet, "/payments", portal, nil, http.StatusOK)
	var payments []models.Payment
	decode(t, env, &payments)
	assert.Len(t, payments, 2)

	env = s.call(http.MethodGet, "/payments", stranger, nil, http.StatusOK)
	decode(t, env, &payments)
	assert.Empty(t, payments)

	s.call(http.MethodGet, fmt.Sprintf("/payments/%d", partial.ID), portal, nil, http.StatusOK)
	s.call(http.MethodGet, fmt.Sprintf("/payments/%d", partial.ID), stranger, nil, http.StatusForbidden)

	env = s.call(http.MethodGet, "/reports/revenue", admin, nil, http.StatusOK)
	var revenue services.RevenueReport
	decode(t, env, &revenue)
	assertAmount(t, "200", revenue.TotalRevenue)
	assert.EqualValues(t, 1, revenue.InvoiceCount)

	env = s.call(http.MethodGet, "/reports/revenue?start_date=2024-02-01&end_date=2024-01-01", admin, nil, http.StatusBadRequest)
	assert.Equal(t, "end_date must not be before start_date", env.Message)
}

func TestCartCheckout(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.account("admin@example.com", models.RoleAdmin)
	shopper, portal := s.account("shopper@example.com", models.RolePortal)
	product, plan := s.catalog(admin)

	env := s.call(http.MethodPost, "/checkout", portal, gin.H{}, http.StatusBadRequest)
	assert.Equal(t, "Cart is empty", env.Message)

	s.call(http.MethodPost, "/cart/items", portal,
		gin.H{"product_id": product.ID, "plan_id": plan.ID, "quantity": 2}, http.StatusCreated)

	env = s.call(http.MethodGet, "/cart", portal, nil, http.StatusOK)
	var cart services.CartView
	decode(t, env, &cart)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Hosting", cart.Items[0].ProductName)
	assertAmount(t, "200", cart.Subtotal)

	env = s.call(http.MethodPost, "/checkout", portal, gin.H{"city": "Lisbon", "country": "PT"}, http.StatusCreated)
	assert.Equal(t, "Order placed successfully", env.Message)
	var result services.CheckoutResult
	decode(t, env, &result)
	assert.Equal(t, "SUB-0001", result.SubscriptionNumber)
	assert.Equal(t, "INV-0001", result.InvoiceNumber)
	assertAmount(t, "200", result.Total)

	env = s.call(http.MethodGet, fmt.Sprintf("/invoices/%d", result.InvoiceID), portal, nil, http.StatusOK)
	var invoice models.Invoice
	decode(t, env, &invoice)
	assert.Equal(t, models.InvoicePaid, invoice.Status)
	assert.Equal(t, shopper.ID, invoice.CustomerID)

	env = s.call(http.MethodGet, "/cart", portal, nil, http.StatusOK)
	decode(t, env, &cart)
	assert.Empty(t, cart.Items)

	env = s.call(http.MethodGet, "/contacts", portal, nil, http.StatusOK)
	var contacts []models.Contact
	decode(t, env, &contacts)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Lisbon", contacts[0].City)
}

func TestCartItemsAreScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.account("admin@example.com", models.RoleAdmin)
	_, alice := s.account("alice@example.com", models.RolePortal)
	_, bob := s.account("bob@example.com", models.RolePortal)
	product, _ := s.catalog(admin)

	env := s.call(http.MethodPost, "/cart/items", alice, gin.H{"product_id": product.ID}, http.StatusCreated)
	var item models.CartItem
	decode(t, env, &item)
	assert.Equal(t, 1, item.Quantity)

	itemPath := fmt.Sprintf("/cart/items/%d", item.ID)
	s.call(http.MethodPut, itemPath, bob, gin.H{"quantity": 5}, http.StatusNotFound)
	s.call(http.MethodDelete, itemPath, bob, nil, http.StatusNotFound)
	s.call(http.MethodPut, itemPath, alice, gin.H{"quantity": 0}, http.StatusUnprocessableEntity)
	s.call(http.MethodPut, itemPath, alice, gin.H{"quantity": 3}, http.StatusOK)
	s.call(http.MethodDelete, "/cart", alice, nil, http.StatusOK)
}

func TestPayInvoiceAcceptsEmptyStreamedBody(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.account("admin@example.com", models.RoleAdmin)
	customer, _ := s.account("customer@example.com", models.RolePortal)
	product, plan := s.catalog(admin)

	env := s.call(http.MethodPost, "/subscriptions", admin, gin.H{
		"customer_id": customer.ID,
		"plan_id":     plan.ID,
		"lines":       []gin.H{{"product_id": product.ID, "quantity": 1}},
	}, http.StatusCreated)
	var sub models.Subscription
	decode(t, env, &sub)
	for _, action := range []string{"to_quotation", "confirm", "activate"} {
		s.call(http.MethodPost, fmt.Sprintf("/subscriptions/%d/transition", sub.ID), admin, gin.H{"action": action}, http.StatusOK)
	}

	env = s.call(http.MethodPost, fmt.Sprintf("/invoices/generate/%d", sub.ID), admin, nil, http.StatusCreated)
	var invoice models.Invoice
	decode(t, env, &invoice)
	invoicePath := fmt.Sprintf("/invoices/%d", invoice.ID)
	s.call(http.MethodPost, invoicePath+"/confirm", admin, nil, http.StatusOK)

	// an io.Reader of unknown length is sent chunked
	req := httptest.NewRequest(http.MethodPost, invoicePath+"/pay", io.MultiReader())
	require.EqualValues(t, -1, req.ContentLength)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env = s.call(http.MethodGet, invoicePath, admin, nil, http.StatusOK)
	decode(t, env, &invoice)
	assert.Equal(t, models.InvoicePaid, invoice.Status)

	s.call(http.MethodPost, invoicePath+"/pay", admin, "{", http.StatusUnprocessableEntity)
}
