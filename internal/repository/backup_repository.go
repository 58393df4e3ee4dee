package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-finance/internal/model"
	"family-finance/internal/money"
)

// BackupRepository reads and replaces the whole dataset.
type BackupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Dump reads every table into a Dataset.
func (r *BackupRepository) Dump(ctx context.Context) (*model.Dataset, error) {
	ds := &model.Dataset{}
	var users []model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name string
			dest interface{}
			q    *gorm.DB
		}{
			{"families", &ds.Families, tx},
			{"users", &users, tx},
			{"transactions", &ds.Transactions, tx},
			{"goals", &ds.Goals, withHistory(tx)},
			{"budget limits", &ds.Budgets, tx},
			{"budget history", &ds.BudgetHistory, tx},
			{"tasks", &ds.Tasks, tx},
			{"events", &ds.Events, tx},
			{"simulations", &ds.SavedSimulations, tx},
			{"settings", &ds.Config, tx},
			{"translations", &ds.Translations, tx},
		}
		for _, s := range steps {
			if err := s.q.Find(s.dest).Error; err != nil {
				return fmt.Errorf("dump %s: %w", s.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ds.Users = make([]model.BackupUser, 0, len(users))
	for _, u := range users {
		ds.Users = append(ds.Users, model.BackupUser{
			User:               u,
			PasswordHash:       u.PasswordHash,
			SecurityAnswerHash: u.SecurityAnswerHash,
			TelegramChatID:     u.TelegramChatID,
		})
	}
	return ds, nil
}

// Replace deletes every row and inserts ds in one transaction. Snapshot
// watermarks and notifications are cleared too, so the snapshot job
// re-evaluates restored users from scratch.
func (r *BackupRepository) Replace(ctx context.Context, ds *model.Dataset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wipe := []interface{}{
			&model.GoalTransaction{},
			&model.SavingsGoal{},
			&model.Transaction{},
			&model.BudgetLimit{},
			&model.BudgetHistory{},
			&model.BudgetWatermark{},
			&model.FamilyTask{},
			&model.FamilyEvent{},
			&model.Notification{},
			&model.SavedSimulation{},
			&model.AppSetting{},
			&model.Translation{},
			&model.User{},
			&model.Family{},
		}
		for _, m := range wipe {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("wipe %T: %w", m, err)
			}
		}

		users := make([]model.User, 0, len(ds.Users))
		for _, bu := range ds.Users {
			u := bu.User
			u.PasswordHash = bu.PasswordHash
			u.SecurityAnswerHash = bu.SecurityAnswerHash
			u.TelegramChatID = bu.TelegramChatID
			users = append(users, u)
		}

		var contributions []model.GoalTransaction
		goals := make([]model.SavingsGoal, 0, len(ds.Goals))
		for _, g := range ds.Goals {
			var sum int64
			for _, h := range g.History {
				h.GoalID = g.ID
				if h.UserID == "" {
					h.UserID = g.UserID
				}
				sum += int64(h.Amount)
				contributions = append(contributions, h)
			}
			g.History = nil
			g.CurrentAmount = money.Cents(sum)
			goals = append(goals, g)
		}

		inserts := []struct {
			name string
			rows interface{}
			n    int
		}{
			{"families", &ds.Families, len(ds.Families)},
			{"users", &users, len(users)},
			{"transactions", &ds.Transactions, len(ds.Transactions)},
			{"goals", &goals, len(goals)},
			{"goal history", &contributions, len(contributions)},
			{"budget limits", &ds.Budgets, len(ds.Budgets)},
			{"budget history", &ds.BudgetHistory, len(ds.BudgetHistory)},
			{"tasks", &ds.Tasks, len(ds.Tasks)},
			{"events", &ds.Events, len(ds.Events)},
			{"simulations", &ds.SavedSimulations, len(ds.SavedSimulations)},
			{"settings", &ds.Config, len(ds.Config)},
			{"translations", &ds.Translations, len(ds.Translations)},
		}
		for _, ins := range inserts {
			if ins.n == 0 {
				continue
			}
			if err := tx.CreateInBatches(ins.rows, 200).Error; err != nil {
				return fmt.Errorf("restore %s: %w", ins.name, err)
			}
		}
		return nil
	})
}
