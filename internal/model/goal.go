package model

import (
	"time"

	"gorm.io/gorm"

	"family-finance/internal/money"
)

// SavingsGoal tracks progress towards a target. CurrentAmount always equals
// the sum of History amounts.
type SavingsGoal struct {
	ID            string            `gorm:"primaryKey" json:"id"`
	UserID        string            `gorm:"index" json:"userId"`
	Name          string            `json:"name"`
	TargetAmount  money.Cents       `gorm:"column:target_cents" json:"targetAmount"`
	CurrentAmount money.Cents       `gorm:"column:current_cents" json:"currentAmount"`
	Deadline      *string           `json:"deadline,omitempty"`
	Color         string            `json:"color,omitempty"`
	InterestRate  float64           `json:"interestRate,omitempty"`
	History       []GoalTransaction `gorm:"foreignKey:GoalID" json:"history"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (g *SavingsGoal) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}

// GoalTransaction is one contribution (or withdrawal, when negative) to a goal.
type GoalTransaction struct {
	ID     string      `gorm:"primaryKey" json:"id"`
	GoalID string      `gorm:"index" json:"goalId"`
	UserID string      `json:"userId"`
	Date   string      `json:"date"`
	Amount money.Cents `gorm:"column:amount_cents" json:"amount"`
	Note   string      `json:"note,omitempty"`
}

func (g *GoalTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
