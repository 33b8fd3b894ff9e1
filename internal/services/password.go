package services

import (
	"strings"
	"subtrack-api/internal/apperror"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// ValidatePassword reports every rule the password breaks
func ValidatePassword(password string) error {
	var problems []string
	if len(password) <= 8 {
		problems = append(problems, "Password must be longer than 8 characters")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !strings.ContainsAny(password, passwordSpecials) {
		problems = append(problems, "Password must contain at least one special character")
	}
	if len(problems) > 0 {
		return apperror.Validation("Password does not meet requirements", problems...)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
