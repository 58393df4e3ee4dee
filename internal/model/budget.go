package model

import (
	"time"

	"gorm.io/gorm"

	"family-finance/internal/money"
)

// BudgetLimit caps monthly spending of one category; unique per (user, category).
type BudgetLimit struct {
	ID        string      `gorm:"primaryKey" json:"-"`
	UserID    string      `gorm:"uniqueIndex:idx_budget_limits_user_category" json:"userId"`
	Category  string      `gorm:"uniqueIndex:idx_budget_limits_user_category" json:"category"`
	Limit     money.Cents `gorm:"column:limit_cents" json:"limit"`
	CreatedAt time.Time   `json:"-"`
	UpdatedAt time.Time   `json:"-"`
}

func (b *BudgetLimit) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// BudgetHistory is the snapshot of a limit and its spending for one month.
type BudgetHistory struct {
	ID        string      `gorm:"primaryKey" json:"-"`
	UserID    string      `gorm:"uniqueIndex:idx_budget_history_user_category_month" json:"userId"`
	Category  string      `gorm:"uniqueIndex:idx_budget_history_user_category_month" json:"category"`
	Month     string      `gorm:"uniqueIndex:idx_budget_history_user_category_month" json:"month"`
	Limit     money.Cents `gorm:"column:limit_cents" json:"limit"`
	Spent     money.Cents `gorm:"column:spent_cents" json:"spent"`
	CreatedAt time.Time   `json:"-"`
	UpdatedAt time.Time   `json:"-"`
}

func (BudgetHistory) TableName() string { return "budget_history" }

func (b *BudgetHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// BudgetWatermark records the last month the snapshot job completed for a user.
type BudgetWatermark struct {
	UserID         string `gorm:"primaryKey"`
	LastMonthSaved string
	UpdatedAt      time.Time
}
