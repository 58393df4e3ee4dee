package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"family-finance/internal/model"
)

// TaskRepository handles shared family tasks and events.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.FamilyTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListByFamily returns open tasks first, earliest due date first.
func (r *TaskRepository) ListByFamily(ctx context.Context, familyID string) ([]model.FamilyTask, error) {
	var tasks []model.FamilyTask
	if err := r.db.WithContext(ctx).Where("family_id = ?", familyID).
		Order("is_completed ASC, due_date IS NULL, due_date ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOpen returns the family's incomplete tasks.
func (r *TaskRepository) ListOpen(ctx context.Context, familyID string) ([]model.FamilyTask, error) {
	var tasks []model.FamilyTask
	if err := r.db.WithContext(ctx).Where("family_id = ? AND is_completed = ?", familyID, false).
		Order("due_date IS NULL, due_date ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, familyID, taskID string) (*model.FamilyTask, error) {
	var task model.FamilyTask
	if err := r.db.WithContext(ctx).Where("family_id = ? AND id = ?", familyID, taskID).First(&task).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.FamilyTask) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// SetCompleted flips the completion state, stamping or clearing completed_at.
func (r *TaskRepository) SetCompleted(ctx context.Context, task *model.FamilyTask, done bool, at time.Time) error {
	task.IsCompleted = done
	if done {
		task.CompletedAt = &at
	} else {
		task.CompletedAt = nil
	}
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, familyID, taskID string) error {
	res := r.db.WithContext(ctx).Where("family_id = ? AND id = ?", familyID, taskID).Delete(&model.FamilyTask{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) CreateEvent(ctx context.Context, event *model.FamilyEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// ListEvents returns the family's events from day onwards (all when day is empty).
func (r *TaskRepository) ListEvents(ctx context.Context, familyID, fromDay string) ([]model.FamilyEvent, error) {
	q := r.db.WithContext(ctx).Where("family_id = ?", familyID)
	if fromDay != "" {
		q = q.Where("date >= ?", fromDay)
	}
	var events []model.FamilyEvent
	if err := q.Order("date ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *TaskRepository) DeleteEvent(ctx context.Context, familyID, eventID string) error {
	res := r.db.WithContext(ctx).Where("family_id = ? AND id = ?", familyID, eventID).Delete(&model.FamilyEvent{})
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
