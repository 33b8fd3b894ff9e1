package services

import (
	"context"
	"subtrack-api/internal/apperror"
	"subtrack-api/internal/models"

	"gorm.io/gorm"
)

// ContactService manages address book entries
type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

type ContactInput struct {
	UserID  uint   `json:"user_id" validate:"required"`
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"max=50"`
	Company string `json:"company" validate:"max=255"`
	Street  string `json:"street" validate:"max=255"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	ZipCode string `json:"zip_code" validate:"max=20"`
	Country string `json:"country" validate:"max=100"`
	Notes   string `json:"notes"`
}

type ContactUpdate struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Company *string `json:"company" validate:"omitempty,max=255"`
	Street  *string `json:"street" validate:"omitempty,max=255"`
	City    *string `json:"city" validate:"omitempty,max=100"`
	State   *string `json:"state" validate:"omitempty,max=100"`
	ZipCode *string `json:"zip_code" validate:"omitempty,max=20"`
	Country *string `json:"country" validate:"omitempty,max=100"`
	Notes   *string `json:"notes"`
}

type ContactFilter struct {
	UserID uint   `form:"user_id"`
	Search string `form:"search"`
	Page
}

func (s *ContactService) Create(ctx context.Context, in ContactInput) (*models.Contact, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	contact := &models.Contact{
		UserID:  in.UserID,
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Company: in.Company,
		Street:  in.Street,
		City:    in.City,
		State:   in.State,
		ZipCode: in.ZipCode,
		Country: in.Country,
		Notes:   in.Notes,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.User{}, in.UserID, "User not found"); err != nil {
			return err
		}
		return apperror.FromDB(tx.Create(contact).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// List matches search against name, email and company
func (s *ContactService) List(ctx context.Context, f ContactFilter) ([]models.Contact, error) {
	p := f.Page.normalize()
	q := s.db.WithContext(ctx).Model(&models.Contact{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", like, like, like)
	}
	var contacts []models.Contact
	err := q.Order("id").Offset(p.Skip).Limit(p.Limit).Find(&contacts).Error
	return contacts, apperror.FromDB(err, "")
}

func (s *ContactService) Get(ctx context.Context, id uint) (*models.Contact, error) {
	var contact models.Contact
	if err := s.db.WithContext(ctx).Take(&contact, id).Error; err != nil {
		return nil, apperror.FromDB(err, "Contact not found")
	}
	return &contact, nil
}

func (s *ContactService) Update(ctx context.Context, id uint, in ContactUpdate) (*models.Contact, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var contact models.Contact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&contact, id).Error; err != nil {
			return apperror.FromDB(err, "Contact not found")
		}
		setString(&contact.Name, in.Name)
		setString(&contact.Email, in.Email)
		setString(&contact.Phone, in.Phone)
		setString(&contact.Company, in.Company)
		setString(&contact.Street, in.Street)
		setString(&contact.City, in.City)
		setString(&contact.State, in.State)
		setString(&contact.ZipCode, in.ZipCode)
		setString(&contact.Country, in.Country)
		setString(&contact.Notes, in.Notes)
		return apperror.FromDB(tx.Save(&contact).Error, "")
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *ContactService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Contact{}, id)
	if res.Error != nil {
		return apperror.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Contact not found")
	}
	return nil
}

// BillingAddress is the optional address captured at checkout
type BillingAddress struct {
	Street  string `json:"street" validate:"max=255"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	ZipCode string `json:"zip_code" validate:"max=20"`
	Country string `json:"country" validate:"max=100"`
}

func (a BillingAddress) empty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.ZipCode == "" && a.Country == ""
}

// saveBillingContact upserts the user's billing contact
func saveBillingContact(tx *gorm.DB, user *models.User, addr BillingAddress) error {
	if addr.empty() {
		return nil
	}
	var contact models.Contact
	err := tx.Where("user_id = ? AND is_billing = ?", user.ID, true).
		Attrs(models.Contact{UserID: user.ID, IsBilling: true, Name: user.FullName, Email: user.Email,
			Phone: user.Phone, Company: user.Company}).
		FirstOrInit(&contact).Error
	if err != nil {
		return apperror.FromDB(err, "")
	}
	if contact.Name == "" {
		contact.Name = user.Email
	}
	contact.Street = addr.Street
	contact.City = addr.City
	contact.State = addr.State
	contact.ZipCode = addr.ZipCode
	contact.Country = addr.Country
	return apperror.FromDB(tx.Save(&contact).Error, "")
}
