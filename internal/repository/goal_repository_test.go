package repository

import (
	"context"
	"testing"

	"family-finance/internal/model"
	"family-finance/internal/money"
)

func assertGoalSum(t *testing.T, repo *GoalRepository, goalID string) *model.SavingsGoal {
	t.Helper()
	goal, err := repo.FindByID(context.Background(), goalID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	var sum money.Cents
	for _, h := range goal.History {
		sum += h.Amount
	}
	if goal.CurrentAmount != sum {
		t.Fatalf("currentAmount = %v, history sum = %v", goal.CurrentAmount, sum)
	}
	return goal
}

func TestGoalCurrentAmountFollowsHistory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGoalRepository(db)
	u := createUser(t, db, "ana")

	goal := &model.SavingsGoal{UserID: u.ID, Name: "Trip", TargetAmount: 500000}
	if err := repo.Create(ctx, goal); err != nil {
		t.Fatal(err)
	}

	entries := []*model.GoalTransaction{
		{GoalID: goal.ID, UserID: u.ID, Date: "2024-01-05", Amount: 10000},
		{GoalID: goal.ID, UserID: u.ID, Date: "2024-02-05", Amount: 25050},
		{GoalID: goal.ID, UserID: u.ID, Date: "2024-03-05", Amount: -5000},
	}
	for _, e := range entries {
		if err := repo.AddContribution(ctx, e); err != nil {
			t.Fatalf("AddContribution: %v", err)
		}
		assertGoalSum(t, repo, goal.ID)
	}

	entries[1].Amount = 1
	if err := repo.UpdateContribution(ctx, entries[1]); err != nil {
		t.Fatalf("UpdateContribution: %v", err)
	}
	if g := assertGoalSum(t, repo, goal.ID); g.CurrentAmount != 5001 {
		t.Errorf("after edit currentAmount = %v, want 50.01", g.CurrentAmount)
	}

	if err := repo.DeleteContribution(ctx, goal.ID, entries[0].ID); err != nil {
		t.Fatalf("DeleteContribution: %v", err)
	}
	if g := assertGoalSum(t, repo, goal.ID); g.CurrentAmount != -4999 || len(g.History) != 2 {
		t.Errorf("after delete currentAmount = %v history=%d", g.CurrentAmount, len(g.History))
	}

	if err := repo.DeleteContribution(ctx, goal.ID, entries[0].ID); err != ErrNotFound {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateContribution(ctx, &model.GoalTransaction{ID: "missing", GoalID: goal.ID}); err != ErrNotFound {
		t.Errorf("update missing = %v, want ErrNotFound", err)
	}
}

func TestDeleteGoalRemovesHistory(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGoalRepository(db)
	u := createUser(t, db, "ana")

	goal := &model.SavingsGoal{UserID: u.ID, Name: "Car", TargetAmount: 100}
	if err := repo.Create(ctx, goal); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddContribution(ctx, &model.GoalTransaction{GoalID: goal.ID, UserID: u.ID, Date: "2024-01-01", Amount: 10}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, goal.ID); err != nil {
		t.Fatal(err)
	}
	var n int64
	db.Model(&model.GoalTransaction{}).Where("goal_id = ?", goal.ID).Count(&n)
	if n != 0 {
		t.Errorf("%d contributions left after goal delete", n)
	}
	if err := repo.Delete(ctx, goal.ID); err != ErrNotFound {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
