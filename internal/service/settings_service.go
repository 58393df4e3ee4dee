package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"family-finance/internal/model"
	"family-finance/internal/repository"
)

// SettingsService manages global key/value settings and the manual snapshot trigger.
type SettingsService struct {
	settings *repository.SettingRepository
	snapshot *SnapshotJob
}

func NewSettingsService(settings *repository.SettingRepository, snapshot *SnapshotJob) *SettingsService {
	return &SettingsService{settings: settings, snapshot: snapshot}
}

func (s *SettingsService) List(ctx context.Context) ([]model.AppSetting, error) {
	return s.settings.List(ctx)
}

func (s *SettingsService) Upsert(ctx context.Context, key, value string) (*model.AppSetting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalid("key", "is required")
	}
	if err := s.settings.Upsert(ctx, key, value); err != nil {
		return nil, err
	}
	return s.settings.Get(ctx, key)
}

// RunSnapshot runs the monthly snapshot job now. It fails with ErrConflict
// while another run is in progress.
func (s *SettingsService) RunSnapshot(ctx context.Context) (SnapshotReport, error) {
	report, err := s.snapshot.Run(ctx)
	if errors.Is(err, ErrSnapshotRunning) {
		return report, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return report, err
}
