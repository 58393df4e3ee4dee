package model

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"family-finance/internal/money"
)

type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type Frequency string

const (
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	return f == Weekly || f == Monthly || f == Yearly
}

// ParseFrequency accepts any case.
func ParseFrequency(s string) (Frequency, bool) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	return f, f.Valid()
}

// ParseTransactionType accepts INCOME/EXPENSE and the Portuguese
// RECEITA/DESPESA used by imports and the AI parser, in any case.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INCOME", "RECEITA":
		return Income, true
	case "EXPENSE", "DESPESA":
		return Expense, true
	}
	return "", false
}

// Transaction is a single ledger entry. Date is a calendar day, YYYY-MM-DD.
type Transaction struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"index" json:"userId"`
	Description string          `json:"description"`
	Amount      money.Cents     `gorm:"column:amount_cents" json:"amount"`
	Date        string          `gorm:"index" json:"date"`
	Category    string          `json:"category"`
	Type        TransactionType `json:"type"`
	IsRecurring bool            `json:"isRecurring"`
	Frequency   Frequency       `json:"frequency,omitempty"`
	NextDueDate *string         `json:"nextDueDate,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
