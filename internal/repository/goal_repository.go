package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"family-finance/internal/model"
	"family-finance/internal/money"
)

// GoalRepository handles savings goals and their contribution history.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("date ASC, id ASC")
	})
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.SavingsGoal) error {
	goal.CurrentAmount = 0
	goal.History = nil
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) FindByID(ctx context.Context, id string) (*model.SavingsGoal, error) {
	var goal model.SavingsGoal
	if err := withHistory(r.db.WithContext(ctx)).Where("id = ?", id).First(&goal).Error; err != nil {
		return nil, notFound(err)
	}
	return &goal, nil
}

func (r *GoalRepository) ListByUsers(ctx context.Context, userIDs ...string) ([]model.SavingsGoal, error) {
	var goals []model.SavingsGoal
	err := withHistory(r.db.WithContext(ctx)).Where("user_id IN ?", userIDs).
		Order("created_at ASC").
		Find(&goals).Error
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// UpdateDetails changes the descriptive fields; the current amount is never written here.
func (r *GoalRepository) UpdateDetails(ctx context.Context, goal *model.SavingsGoal) error {
	res := r.db.WithContext(ctx).Model(&model.SavingsGoal{}).Where("id = ?", goal.ID).
		Updates(map[string]interface{}{
			"name":          goal.Name,
			"target_cents":  goal.TargetAmount,
			"deadline":      goal.Deadline,
			"color":         goal.Color,
			"interest_rate": goal.InterestRate,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GoalRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", id).Delete(&model.GoalTransaction{}).Error; err != nil {
			return fmt.Errorf("delete goal history: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.SavingsGoal{})
		if res.Error != nil {
			return fmt.Errorf("delete goal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AddContribution appends an entry and recomputes the goal total.
func (r *GoalRepository) AddContribution(ctx context.Context, entry *model.GoalTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("add contribution: %w", err)
		}
		return recomputeGoal(tx, entry.GoalID)
	})
}

// UpdateContribution edits an entry and recomputes the goal total.
func (r *GoalRepository) UpdateContribution(ctx context.Context, entry *model.GoalTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.GoalTransaction{}).
			Where("id = ? AND goal_id = ?", entry.ID, entry.GoalID).
			Updates(map[string]interface{}{
				"amount_cents": entry.Amount,
				"date":         entry.Date,
				"note":         entry.Note,
			})
		if res.Error != nil {
			return fmt.Errorf("update contribution: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return recomputeGoal(tx, entry.GoalID)
	})
}

// DeleteContribution removes an entry and recomputes the goal total.
func (r *GoalRepository) DeleteContribution(ctx context.Context, goalID, entryID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND goal_id = ?", entryID, goalID).Delete(&model.GoalTransaction{})
		if res.Error != nil {
			return fmt.Errorf("delete contribution: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return recomputeGoal(tx, goalID)
	})
}

// recomputeGoal sets current_cents to the full sum of the goal's entries.
func recomputeGoal(tx *gorm.DB, goalID string) error {
	var sum int64
	err := tx.Model(&model.GoalTransaction{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("goal_id = ?", goalID).
		Scan(&sum).Error
	if err != nil {
		return fmt.Errorf("sum contributions: %w", err)
	}
	res := tx.Model(&model.SavingsGoal{}).Where("id = ?", goalID).
		Updates(map[string]interface{}{
			"current_cents": money.Cents(sum),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("recompute goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
