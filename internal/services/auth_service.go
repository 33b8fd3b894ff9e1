package services

import (
	"context"
	"errors"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"
	"subtrack-api/pkg/logging"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthService handles signup, login and password recovery
type AuthService struct {
	db        *gorm.DB
	tokens    *TokenService
	limiter   *LoginLimiter
	directory DirectorySync
	resetTTL  time.Duration
}

func NewAuthService(db *gorm.DB, tokens *TokenService, limiter *LoginLimiter, directory DirectorySync, resetTTL time.Duration) *AuthService {
	if directory == nil {
		directory = noopDirectorySync{}
	}
	return &AuthService{
		db:        db,
		tokens:    tokens,
		limiter:   limiter,
		directory: directory,
		resetTTL:  resetTTL,
	}
}

type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"max=50"`
	Company  string `json:"company" validate:"max=255"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a token pair plus the authenticated account
type AuthResult struct {
	*TokenPair
	User *models.User `json:"user"`
}

// Signup registers a portal account
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to hash password")
	}

	user := &models.User{
		Email:          normalizeEmail(in.Email),
		HashedPassword: hash,
		FullName:       in.FullName,
		Phone:          in.Phone,
		Company:        in.Company,
		Role:           models.RolePortal,
		IsActive:       true,
	}
	if err := createUser(s.db.WithContext(ctx), user); err != nil {
		return nil, err
	}

	s.directory.SyncUser(DirectoryEventUserCreated, user)
	return user, nil
}

// createUser inserts user unless the email is taken
func createUser(db *gorm.DB, user *models.User) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		if count > 0 {
			return apperror.Conflict("Email already registered")
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("Email already registered")
			}
			return apperror.FromDB(err, "")
		}
		return nil
	})
}

// Login checks credentials and issues tokens
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)

	allowed, err := s.limiter.Allowed(ctx, email)
	if err != nil {
		logging.Errorf("Login limiter unavailable, allowing attempt: %v", err)
		allowed = true
	}
	if !allowed {
		return nil, apperror.TooManyRequests("Too many failed login attempts, try again later")
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.FromDB(err, "")
	}
	if err != nil || !CheckPassword(user.HashedPassword, in.Password) {
		if err := s.limiter.RecordFailure(ctx, email); err != nil {
			logging.Errorf("Failed to record login failure for %s: %v", email, err)
		}
		return nil, apperror.Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("Account is deactivated")
	}
	if err := s.limiter.Reset(ctx, email); err != nil {
		logging.Errorf("Failed to reset login attempts for %s: %v", email, err)
	}

	pair, err := s.tokens.IssuePair(&user)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to issue tokens")
	}
	return &AuthResult{TokenPair: pair, User: &user}, nil
}

// Refresh exchanges a refresh token for a new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("Invalid token")
		}
		return nil, apperror.FromDB(err, "")
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("Account is deactivated")
	}

	pair, err := s.tokens.IssuePair(&user)
	if err != nil {
		return nil, apperror.Internal(err, "Failed to issue tokens")
	}
	return &AuthResult{TokenPair: pair, User: &user}, nil
}

// ForgotPassword stores a reset token for email. It returns "" for unknown
// addresses so callers can answer the same way either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperror.FromDB(err, "")
	}

	token := uuid.NewString()
	expiry := now().Add(s.resetTTL)
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	}).Error
	if err != nil {
		return "", apperror.FromDB(err, "")
	}
	return token, nil
}

// ResetPassword sets a new password using a token from ForgotPassword
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperror.BadRequest("Invalid reset token")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reset_token = ?", token).Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.BadRequest("Invalid reset token")
			}
			return apperror.FromDB(err, "")
		}
		if user.ResetTokenExpiry != nil && user.ResetTokenExpiry.Before(now()) {
			return apperror.BadRequest("Reset token expired")
		}
		if err := ValidatePassword(newPassword); err != nil {
			return err
		}
		hash, err := HashPassword(newPassword)
		if err != nil {
			return apperror.Internal(err, "Failed to hash password")
		}
		user.HashedPassword = hash
		return apperror.FromDB(tx.Model(&user).Updates(map[string]interface{}{
			"hashed_password":    hash,
			"reset_token":        nil,
			"reset_token_expiry": nil,
		}).Error, "")
	})
	if err != nil {
		return err
	}

	s.directory.SyncUser(DirectoryEventPasswordChanged, &user)
	return nil
}
