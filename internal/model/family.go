package model

import (
	"time"

	"gorm.io/gorm"
)

// FamilyTask is a shared to-do item of a family.
type FamilyTask struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	FamilyID    string     `gorm:"index" json:"familyId"`
	Description string     `json:"description"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	IsCompleted bool       `gorm:"default:false" json:"isCompleted"`
	DueDate     *string    `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *FamilyTask) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// FamilyEvent is a calendar entry shared by a family.
type FamilyEvent struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	FamilyID    string    `gorm:"index" json:"familyId"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *FamilyEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
