package models

// Contact is an address book entry owned by a user
type Contact struct {
	BaseModel

	UserID    uint   `json:"user_id" gorm:"not null;index"`
	Name      string `json:"name" gorm:"size:255;not null"`
	Email     string `json:"email" gorm:"size:255"`
	Phone     string `json:"phone" gorm:"size:50"`
	Company   string `json:"company" gorm:"size:255"`
	Street    string `json:"street" gorm:"size:255"`
	City      string `json:"city" gorm:"size:100"`
	State     string `json:"state" gorm:"size:100"`
	ZipCode   string `json:"zip_code" gorm:"size:20"`
	Country   string `json:"country" gorm:"size:100"`
	Notes     string `json:"notes" gorm:"type:text"`
	IsBilling bool   `json:"is_billing" gorm:"not null;default:false"` // address captured at checkout
}
