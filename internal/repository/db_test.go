package repository

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"family-finance/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenMemory(nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x", Name: username, Role: model.RoleMember, Status: model.StatusActive}
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ff.db", "ff.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"},
		{"file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		if got := withPragmas(tt.in); got != tt.want {
			t.Errorf("withPragmas(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	var n int64
	if err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'budget_watermarks'").Scan(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("budget_watermarks table missing")
	}
}
