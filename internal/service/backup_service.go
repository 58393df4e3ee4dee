package service

import (
	"bytes"
	"context"
	"encoding/json"

	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/repository"
)

const (
	BackupAppName = "family-finance"
	BackupVersion = 1
)

// BackupService exports the whole dataset and restores it wholesale.
type BackupService struct {
	repo   *repository.BackupRepository
	logger *log.Logger
}

func NewBackupService(repo *repository.BackupRepository, logger *log.Logger) *BackupService {
	return &BackupService{repo: repo, logger: logger.WithComponent(log.ComponentBackup)}
}

func (s *BackupService) Export(ctx context.Context) (*model.Dataset, error) {
	ds, err := s.repo.Dump(ctx)
	if err != nil {
		return nil, err
	}
	ds.AppName = BackupAppName
	ds.Version = BackupVersion
	s.logger.InfoContext(ctx, "backup exported",
		log.FieldOperation, log.OpExport,
		"users", len(ds.Users),
		"transactions", len(ds.Transactions),
	)
	return ds, nil
}

// Restore replaces every table with the content of raw. The only check is
// that raw is a JSON object; missing sections restore as empty.
func (s *BackupService) Restore(ctx context.Context, raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return invalid("body", "backup must be a JSON object")
	}
	var ds model.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return invalid("body", "malformed backup: %s", err)
	}
	if err := s.repo.Replace(ctx, &ds); err != nil {
		s.logger.ErrorContext(ctx, "restore failed", log.FieldOperation, log.OpRestore, log.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "backup restored",
		log.FieldOperation, log.OpRestore,
		"users", len(ds.Users),
		"transactions", len(ds.Transactions),
	)
	return nil
}
