package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"family-finance/internal/model"
)

// SettingRepository stores global key/value settings and UI translations.
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) List(ctx context.Context) ([]model.AppSetting, error) {
	var out []model.AppSetting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SettingRepository) Get(ctx context.Context, key string) (*model.AppSetting, error) {
	var s model.AppSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	s := model.AppSetting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// ActiveTranslations returns the key/value rows of language.
func (r *SettingRepository) ActiveTranslations(ctx context.Context, language string) ([]model.Translation, error) {
	var out []model.Translation
	q := r.db.WithContext(ctx).Where("status = ?", "active")
	if language != "" {
		q = q.Where("language = ?", language)
	}
	if err := q.Order("language ASC, key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SettingRepository) Languages(ctx context.Context) ([]string, error) {
	var langs []string
	err := r.db.WithContext(ctx).Model(&model.Translation{}).
		Distinct("language").
		Order("language ASC").
		Pluck("language", &langs).Error
	if err != nil {
		return nil, err
	}
	return langs, nil
}

// UpsertTranslation saves t, replacing the value of an existing (language, key).
func (r *SettingRepository) UpsertTranslation(ctx context.Context, t *model.Translation) error {
	if t.Status == "" {
		t.Status = "active"
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "language"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "created_by", "status", "updated_at"}),
	}).Create(t).Error
	if err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return nil
}

// CopyLanguage seeds language with base's active strings, keeping existing keys.
func (r *SettingRepository) CopyLanguage(ctx context.Context, base, language, createdBy string) (int64, error) {
	src, err := r.ActiveTranslations(ctx, base)
	if err != nil {
		return 0, err
	}
	if len(src) == 0 {
		return 0, nil
	}
	rows := make([]model.Translation, 0, len(src))
	for _, t := range src {
		rows = append(rows, model.Translation{
			Language:  language,
			Key:       t.Key,
			Value:     t.Value,
			CreatedBy: createdBy,
			Status:    "active",
		})
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("copy language: %w", res.Error)
	}
	return res.RowsAffected, nil
}
