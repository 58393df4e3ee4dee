package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-finance/internal/model"
)

type SimulationRepository struct {
	db *gorm.DB
}

func NewSimulationRepository(db *gorm.DB) *SimulationRepository {
	return &SimulationRepository{db: db}
}

func (r *SimulationRepository) Create(ctx context.Context, s *model.SavedSimulation) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("create simulation: %w", err)
	}
	return nil
}

func (r *SimulationRepository) ListByUser(ctx context.Context, userID string) ([]model.SavedSimulation, error) {
	var out []model.SavedSimulation
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SimulationRepository) FindByID(ctx context.Context, userID, id string) (*model.SavedSimulation, error) {
	var s model.SavedSimulation
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SimulationRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.SavedSimulation{})
	if res.Error != nil {
		return fmt.Errorf("delete simulation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
