package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"family-finance/internal/auth"
	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/repository"
)

// fixture wires the repositories over a fresh in-memory database.
type fixture struct {
	db            *gorm.DB
	users         *repository.UserRepository
	txs           *repository.TransactionRepository
	budgets       *repository.BudgetRepository
	goals         *repository.GoalRepository
	tasks         *repository.TaskRepository
	notifications *repository.NotificationRepository
	settings      *repository.SettingRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.OpenMemory(log.Discard())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &fixture{
		db:            db,
		users:         repository.NewUserRepository(db),
		txs:           repository.NewTransactionRepository(db),
		budgets:       repository.NewBudgetRepository(db),
		goals:         repository.NewGoalRepository(db),
		tasks:         repository.NewTaskRepository(db),
		notifications: repository.NewNotificationRepository(db),
		settings:      repository.NewSettingRepository(db),
	}
}

func (f *fixture) family(t *testing.T, name string) *model.Family {
	t.Helper()
	fam := &model.Family{Name: name}
	if err := f.users.CreateFamily(context.Background(), fam); err != nil {
		t.Fatalf("create family: %v", err)
	}
	return fam
}

func (f *fixture) user(t *testing.T, username string, role model.Role, fam *model.Family) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		PasswordHash: "x",
		Name:         username,
		Role:         role,
		Status:       model.StatusActive,
	}
	if fam != nil {
		u.FamilyID = &fam.ID
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) limit(t *testing.T, userID, category string, limit money.Cents) {
	t.Helper()
	if err := f.budgets.UpsertLimit(context.Background(), &model.BudgetLimit{UserID: userID, Category: category, Limit: limit}); err != nil {
		t.Fatalf("upsert limit: %v", err)
	}
}

func (f *fixture) tx(t *testing.T, userID, date, category string, typ model.TransactionType, amount money.Cents) *model.Transaction {
	t.Helper()
	tx := &model.Transaction{
		UserID:      userID,
		Description: category + " " + date,
		Amount:      amount,
		Date:        date,
		Category:    category,
		Type:        typ,
	}
	if err := f.txs.Create(context.Background(), tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func (f *fixture) userService() *UserService {
	return NewUserService(f.users, auth.NewHasher(4), auth.NewTokens("test-secret-0123456789", time.Hour))
}

func clock(year int, m time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, m, day, 12, 0, 0, 0, time.Local)
	}
}

func ptr[T any](v T) *T { return &v }
