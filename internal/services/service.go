package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// now is replaced in tests to pin the calendar
var now = time.Now

func today() time.Time {
	return models.DateOf(now())
}

func dateOrToday(t *time.Time) time.Time {
	if t == nil {
		return today()
	}
	return models.DateOf(*t)
}

func optionalDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.DateOf(*t)
	return &d
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and reports one message per field
func validateInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation(err.Error())
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return apperror.Validation("Validation failed", details...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}

// nonNegative rejects a negative money amount
func nonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperror.Validation("Validation failed", field+" must not be negative")
	}
	return nil
}

func nonNegativePtr(field string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	return nonNegative(field, *d)
}

// Page is an offset window over a listing
type Page struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

func (p Page) normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// ensureExists returns a not-found error when no row of model has id
func ensureExists(tx *gorm.DB, model interface{}, id uint, notFound string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperror.FromDB(err, notFound)
	}
	if count == 0 {
		return apperror.NotFound(notFound)
	}
	return nil
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
