package api

import (
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleInternal)

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}

	// Everything below needs a valid access token
	authed := r.Group("")
	authed.Use(middleware.Auth(h.Tokens, h.Users))
	{
		authed.GET("/auth/me", h.Me)

		users := authed.Group("/users")
		{
			users.POST("", admin, h.CreateUser)
			users.GET("", staff, h.ListUsers)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", h.UpdateUser)
			users.DELETE("/:id", admin, h.DeactivateUser)
		}

		products := authed.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.POST("", admin, h.CreateProduct)
			products.GET("/:id", h.GetProduct)
			products.PUT("/:id", admin, h.UpdateProduct)
			products.DELETE("/:id", admin, h.DeactivateProduct)

			products.GET("/:id/variants", h.ListVariants)
			products.POST("/:id/variants", admin, h.CreateVariant)
			products.PUT("/:id/variants/:variant_id", admin, h.UpdateVariant)
			products.DELETE("/:id/variants/:variant_id", admin, h.DeleteVariant)
		}

		plans := authed.Group("/recurring-plans")
		{
			plans.GET("", h.ListPlans)
			plans.POST("", admin, h.CreatePlan)
			plans.GET("/:id", h.GetPlan)
			plans.PUT("/:id", admin, h.UpdatePlan)
			plans.DELETE("/:id", admin, h.DeletePlan)
		}

		taxes := authed.Group("/taxes")
		{
			taxes.GET("", staff, h.ListTaxes)
			taxes.POST("", admin, h.CreateTax)
			taxes.GET("/:id", staff, h.GetTax)
			taxes.PUT("/:id", admin, h.UpdateTax)
			taxes.DELETE("/:id", admin, h.DeactivateTax)
		}

		discounts := authed.Group("/discounts")
		{
			discounts.POST("/validate-code", h.ValidateDiscountCode)
			discounts.GET("", staff, h.ListDiscounts)
			discounts.POST("", admin, h.CreateDiscount)
			discounts.GET("/:id", staff, h.GetDiscount)
			discounts.PUT("/:id", admin, h.UpdateDiscount)
			discounts.DELETE("/:id", admin, h.DeactivateDiscount)
		}

		templates := authed.Group("/quotation-templates")
		{
			templates.GET("", staff, h.ListTemplates)
			templates.POST("", admin, h.CreateTemplate)
			templates.GET("/:id", staff, h.GetTemplate)
			templates.PUT("/:id", admin, h.UpdateTemplate)
			templates.DELETE("/:id", admin, h.DeleteTemplate)
		}

		contacts := authed.Group("/contacts")
		{
			contacts.GET("", h.ListContacts)
			contacts.POST("", staff, h.CreateContact)
			contacts.GET("/:id", h.GetContact)
			contacts.PUT("/:id", staff, h.UpdateContact)
			contacts.DELETE("/:id", admin, h.DeleteContact)
		}

		subscriptions := authed.Group("/subscriptions")
		{
			subscriptions.GET("", h.ListSubscriptions)
			subscriptions.POST("", staff, h.CreateSubscription)
			subscriptions.GET("/:id", h.GetSubscription)
			subscriptions.PUT("/:id", staff, h.UpdateSubscription)
			subscriptions.DELETE("/:id", admin, h.DeleteSubscription)

			subscriptions.POST("/:id/lines", staff, h.AddSubscriptionLine)
			subscriptions.PUT("/:id/lines/:line_id", staff, h.UpdateSubscriptionLine)
			subscriptions.DELETE("/:id/lines/:line_id", staff, h.DeleteSubscriptionLine)

			subscriptions.POST("/:id/transition", staff, h.TransitionSubscription)
			subscriptions.POST("/:id/renew", staff, h.RenewSubscription)
			subscriptions.POST("/:id/upsell", staff, h.UpsellSubscription)
			subscriptions.GET("/:id/history", h.SubscriptionHistory)
		}

		invoices := authed.Group("/invoices")
		{
			invoices.POST("/generate/:subscription_id", staff, h.GenerateInvoice)
			invoices.GET("", h.ListInvoices)
			invoices.GET("/:id", h.GetInvoice)
			invoices.DELETE("/:id", admin, h.DeleteInvoice)
			invoices.POST("/:id/confirm", staff, h.ConfirmInvoice)
			invoices.POST("/:id/cancel", admin, h.CancelInvoice)
			invoices.POST("/:id/back-to-draft", admin, h.InvoiceBackToDraft)
			invoices.POST("/:id/send", staff, h.SendInvoice)
			invoices.POST("/:id/pay", staff, h.PayInvoice)
			invoices.GET("/:id/pdf", h.DownloadInvoice)
		}

		payments := authed.Group("/payments")
		{
			payments.POST("", staff, h.CreatePayment)
			payments.GET("", h.ListPayments)
			payments.GET("/:id", h.GetPayment)
		}

		cart := authed.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.POST("/items", h.AddCartItem)
			cart.PUT("/items/:id", h.UpdateCartItem)
			cart.DELETE("/items/:id", h.RemoveCartItem)
			cart.DELETE("", h.ClearCart)
		}

		authed.POST("/checkout", h.PlaceOrder)

		reports := authed.Group("/reports")
		reports.Use(staff)
		{
			reports.GET("/active-subscriptions", h.ActiveSubscriptionsReport)
			reports.GET("/revenue", h.RevenueReport)
			reports.GET("/payments-summary", h.PaymentsSummaryReport)
			reports.GET("/overdue-invoices", h.OverdueInvoicesReport)
			reports.GET("/dashboard", h.DashboardReport)
		}
	}

	// Health check
	r.GET("/health", h.Health)
}
