package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"

	"gorm.io/gorm"
)

// UserService manages accounts on behalf of staff
type UserService struct {
	db        *gorm.DB
	directory DirectorySync
}

func NewUserService(db *gorm.DB, directory DirectorySync) *UserService {
	if directory == nil {
		directory = noopDirectorySync{}
	}
	return &UserService{db: db, directory: directory}
}

type CreateUserInput struct {
	Email    string      `json:"email" validate:"required,email,max=255"`
	Password string      `json:"password" validate:"required"`
	FullName string      `json:"full_name" validate:"required,max=255"`
	Phone    string      `json:"phone" validate:"max=50"`
	Company  string      `json:"company" validate:"max=255"`
	Role     models.Role `json:"role" validate:"required"`
}

type UpdateUserInput struct {
	FullName *string      `json:"full_name" validate:"omitempty,max=255"`
	Phone    *string      `json:"phone" validate:"omitempty,max=50"`
	Company  *string      `json:"company" validate:"omitempty,max=255"`
	Password *string      `json:"password"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

type UserFilter struct {
	Role     models.Role `form:"role"`
	IsActive *bool       `form:"is_active"`
	Page
}

// Create adds a staff account; portal accounts come from signup
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Role.IsStaff() {
		return nil, apperror.BadRequest("Role must be internal or admin")
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
		Role:           in.Role,
		IsActive:       true,
	}
	if err := createUser(s.db.WithContext(ctx), user); err != nil {
		return nil, err
	}

	s.directory.SyncUser(DirectoryEventUserCreated, user)
	return user, nil
}

func (s *UserService) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var users []models.User
	err := q.Order("id").Offset(p.Skip).Limit(p.Limit).Find(&users).Error
	return users, apperror.FromDB(err, "")
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, id).Error; err != nil {
		return nil, apperror.FromDB(err, "User not found")
	}
	return &user, nil
}

// Update changes profile fields. Only admins may change role or active status.
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput, asAdmin bool) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !asAdmin && (in.Role != nil || in.IsActive != nil) {
		return nil, apperror.Forbidden("Only administrators can change role or status")
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperror.BadRequest("Invalid role: %s", *in.Role)
	}

	updates := map[string]interface{}{}
	if in.FullName != nil {
		updates["full_name"] = *in.FullName
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Company != nil {
		updates["company"] = *in.Company
	}
	if in.Role != nil {
		updates["role"] = *in.Role
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.Password != nil {
		if err := ValidatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, apperror.Internal(err, "Failed to hash password")
		}
		updates["hashed_password"] = hash
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&user, id).Error; err != nil {
			return apperror.FromDB(err, "User not found")
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return apperror.FromDB(err, "")
		}
		return apperror.FromDB(tx.Take(&user, id).Error, "User not found")
	})
	if err != nil {
		return nil, err
	}

	if in.Password != nil {
		s.directory.SyncUser(DirectoryEventPasswordChanged, &user)
	} else if len(updates) > 0 {
		s.directory.SyncUser(DirectoryEventUserUpdated, &user)
	}
	return &user, nil
}

// Deactivate soft-deletes an account
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Take(&user, id).Error; err != nil {
			return apperror.FromDB(err, "User not found")
		}
		return apperror.FromDB(tx.Model(&user).Update("is_active", false).Error, "")
	})
}
