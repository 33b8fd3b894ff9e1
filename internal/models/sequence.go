package models

// SequenceCounter holds the last number issued for a prefix
type SequenceCounter struct {
	Prefix string `gorm:"primaryKey;size:16"`
	Value  int    `gorm:"not null"`
}
