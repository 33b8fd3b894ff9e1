package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/config"
	"subtrack-api/internal/middleware"
	"subtrack-api/internal/models"
	"subtrack-api/internal/response"
	"subtrack-api/internal/services"
	"subtrack-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds the services behind the HTTP routes
type Handler struct {
	DB    *gorm.DB
	Redis *redis.Client // nil when Redis is not configured

	Tokens        *services.TokenService
	Auth          *services.AuthService
	Users         *services.UserService
	Products      *services.ProductService
	Plans         *services.PlanService
	Taxes         *services.TaxService
	Discounts     *services.DiscountService
	Templates     *services.TemplateService
	Contacts      *services.ContactService
	Subscriptions *services.SubscriptionService
	Invoices      *services.InvoiceService
	Payments      *services.PaymentService
	Carts         *services.CartService
	Checkout      *services.CheckoutService
	Reports       *services.ReportService
}

// NewHandler wires every service from cfg. rdb may be nil.
func NewHandler(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Handler {
	tokens := services.NewTokenService(cfg.SecretKey, cfg.AccessTokenExpire, cfg.RefreshTokenExpire)
	limiter := services.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginLockout)
	directory := services.NewDirectorySync(cfg.DirectorySyncURL, cfg.DirectorySyncSecret)
	mailer := services.NewBrevoMailer(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName)

	return &Handler{
		DB:            db,
		Redis:         rdb,
		Tokens:        tokens,
		Auth:          services.NewAuthService(db, tokens, limiter, directory, cfg.ResetTokenExpire),
		Users:         services.NewUserService(db, directory),
		Products:      services.NewProductService(db),
		Plans:         services.NewPlanService(db),
		Taxes:         services.NewTaxService(db),
		Discounts:     services.NewDiscountService(db),
		Templates:     services.NewTemplateService(db),
		Contacts:      services.NewContactService(db),
		Subscriptions: services.NewSubscriptionService(db),
		Invoices:      services.NewInvoiceService(db, mailer, cfg.InvoiceDueDays),
		Payments:      services.NewPaymentService(db),
		Carts:         services.NewCartService(db),
		Checkout:      services.NewCheckoutService(db, cfg.InvoiceDueDays),
		Reports:       services.NewReportService(db),
	}
}

// respondError writes err as an envelope with the matching status
func respondError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindInternal {
		logging.L().Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	response.ErrorJSON(c, apperror.HTTPStatus(appErr), appErr.Message, appErr.Details...)
}

// bindJSON decodes the request body into dst, answering 422 on malformed input
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			response.ErrorJSON(c, http.StatusUnprocessableEntity, "Request body is required")
			return false
		}
		response.ErrorJSON(c, http.StatusUnprocessableEntity, "Invalid request body", err.Error())
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted; an
// empty body leaves dst at its zero value
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.ErrorJSON(c, http.StatusUnprocessableEntity, "Invalid request body", err.Error())
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst
func bindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.ErrorJSON(c, http.StatusUnprocessableEntity, "Invalid query parameters", err.Error())
		return false
	}
	return true
}

// paramID parses a positive integer path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ErrorJSON(c, http.StatusUnprocessableEntity, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// canAccess reports whether the caller may see a resource owned by ownerID;
// staff see everything, portal users only their own.
func canAccess(c *gin.Context, ownerID uint) bool {
	if middleware.IsStaff(c) {
		return true
	}
	return middleware.UserID(c) == ownerID
}

func forbidden(c *gin.Context) {
	response.ErrorJSON(c, http.StatusForbidden, "Insufficient permissions")
}

func isPortal(c *gin.Context) bool {
	return middleware.Role(c) == models.RolePortal
}

// Health reports database and Redis reachability
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.Redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.Redis.Ping(c.Request.Context()).Err(); err != nil {
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "subtrack-api",
		"checks":  checks,
	})
}
