package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"family-finance/internal/model"
)

// BudgetRepository stores limits, monthly history and snapshot watermarks.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// UpsertLimit saves limit, replacing the amount of an existing (user, category)
// row. limit is reloaded afterwards so its ID is the stored row's.
func (r *BudgetRepository) UpsertLimit(ctx context.Context, limit *model.BudgetLimit) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"limit_cents", "updated_at"}),
	}).Create(limit).Error
	if err != nil {
		return fmt.Errorf("upsert budget limit: %w", err)
	}
	var stored model.BudgetLimit
	if err := db.Where("user_id = ? AND category = ?", limit.UserID, limit.Category).First(&stored).Error; err != nil {
		return fmt.Errorf("reload budget limit: %w", err)
	}
	*limit = stored
	return nil
}

func (r *BudgetRepository) ListLimits(ctx context.Context, userIDs ...string) ([]model.BudgetLimit, error) {
	var limits []model.BudgetLimit
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).
		Order("user_id ASC, category ASC").
		Find(&limits).Error
	if err != nil {
		return nil, err
	}
	return limits, nil
}

func (r *BudgetRepository) FindLimit(ctx context.Context, userID, category string) (*model.BudgetLimit, error) {
	var limit model.BudgetLimit
	err := r.db.WithContext(ctx).Where("user_id = ? AND category = ?", userID, category).First(&limit).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &limit, nil
}

func (r *BudgetRepository) DeleteLimit(ctx context.Context, userID, category string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND category = ?", userID, category).Delete(&model.BudgetLimit{})
	if res.Error != nil {
		return fmt.Errorf("delete budget limit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LimitOwners lists the distinct users that have at least one limit.
func (r *BudgetRepository) LimitOwners(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.BudgetLimit{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list limit owners: %w", err)
	}
	return ids, nil
}

// UpsertHistory writes snapshot rows, replacing rows of the same (user, category, month).
func (r *BudgetRepository) UpsertHistory(ctx context.Context, rows []model.BudgetHistory) error {
	return upsertHistory(r.db.WithContext(ctx), rows)
}

func upsertHistory(db *gorm.DB, rows []model.BudgetHistory) error {
	if len(rows) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"limit_cents", "spent_cents", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert budget history: %w", err)
	}
	return nil
}

// ListHistory returns userID's history for the most recent months, newest first.
func (r *BudgetRepository) ListHistory(ctx context.Context, userID string, months int) ([]model.BudgetHistory, error) {
	db := r.db.WithContext(ctx)
	recent := db.Model(&model.BudgetHistory{}).
		Distinct("month").
		Where("user_id = ?", userID).
		Order("month DESC").
		Limit(months)

	var rows []model.BudgetHistory
	err := db.Where("user_id = ? AND month IN (?)", userID, recent).
		Order("month DESC, category ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Watermark returns the last month the snapshot job completed for userID.
func (r *BudgetRepository) Watermark(ctx context.Context, userID string) (string, bool, error) {
	var wm model.BudgetWatermark
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wm).Error
	switch {
	case err == nil:
		return wm.LastMonthSaved, true, nil
	case err == gorm.ErrRecordNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("find watermark: %w", err)
	}
}

// CommitSnapshot stores rows and advances userID's watermark in one transaction.
func (r *BudgetRepository) CommitSnapshot(ctx context.Context, userID string, rows []model.BudgetHistory, watermark string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertHistory(tx, rows); err != nil {
			return err
		}
		wm := model.BudgetWatermark{UserID: userID, LastMonthSaved: watermark, UpdatedAt: time.Now().UTC()}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_month_saved", "updated_at"}),
		}).Create(&wm).Error
		if err != nil {
			return fmt.Errorf("advance watermark: %w", err)
		}
		return nil
	})
}
