package model

import (
	"time"

	"gorm.io/gorm"

	"family-finance/internal/money"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"userId"`
	Kind      string    `json:"kind"`
	Ref       string    `gorm:"index" json:"-"` // dedupe key, e.g. category@month
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"date"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// SavedSimulation is a loan simulation kept for later comparison.
type SavedSimulation struct {
	ID                 string      `gorm:"primaryKey" json:"id"`
	UserID             string      `gorm:"index" json:"userId"`
	Name               string      `json:"name"`
	LoanAmount         money.Cents `gorm:"column:loan_amount_cents" json:"loanAmount"`
	InterestRateAnnual float64     `json:"interestRateAnnual"`
	TermMonths         int         `json:"termMonths"`
	System             string      `json:"system"`
	CreatedAt          time.Time   `json:"createdAt"`
}

func (s *SavedSimulation) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// AppSetting is a global key/value setting.
type AppSetting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Translation is one UI string in one language.
type Translation struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Language  string    `gorm:"uniqueIndex:idx_translations_language_key" json:"language"`
	Key       string    `gorm:"uniqueIndex:idx_translations_language_key" json:"key"`
	Value     string    `json:"value"`
	CreatedBy string    `json:"createdBy,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Translation) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
