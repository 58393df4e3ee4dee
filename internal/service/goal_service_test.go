package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"family-finance/internal/model"
	"family-finance/internal/money"
)

func assertGoalTotal(t *testing.T, goal *model.SavingsGoal, want money.Cents) {
	t.Helper()
	var sum money.Cents
	for _, h := range goal.History {
		sum += h.Amount
	}
	if goal.CurrentAmount != sum {
		t.Fatalf("currentAmount %s differs from history sum %s", goal.CurrentAmount, sum)
	}
	if goal.CurrentAmount != want {
		t.Fatalf("currentAmount = %s, want %s", goal.CurrentAmount, want)
	}
}

func TestGoalTotalFollowsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	svc := NewGoalService(f.goals, f.userService())
	svc.now = clock(2024, time.March, 10)

	goal, err := svc.Create(ctx, u, GoalInput{Name: "Viagem", TargetAmount: 500000})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertGoalTotal(t, goal, 0)

	goal, err = svc.AddContribution(ctx, u, goal.ID, ContributionInput{Amount: 10000})
	if err != nil {
		t.Fatal(err)
	}
	assertGoalTotal(t, goal, 10000)
	if goal.History[0].Date != "2024-03-10" {
		t.Fatalf("default date = %s", goal.History[0].Date)
	}

	goal, err = svc.AddContribution(ctx, u, goal.ID, ContributionInput{Amount: 25050, Date: "2024-03-11", Note: "bônus"})
	if err != nil {
		t.Fatal(err)
	}
	assertGoalTotal(t, goal, 35050)

	goal, err = svc.AddContribution(ctx, u, goal.ID, ContributionInput{Amount: -5000, Date: "2024-03-12"})
	if err != nil {
		t.Fatal(err)
	}
	assertGoalTotal(t, goal, 30050)

	first := goal.History[0].ID
	for _, h := range goal.History {
		if h.Amount == 10000 {
			first = h.ID
		}
	}
	goal, err = svc.UpdateContribution(ctx, u, goal.ID, first, ContributionInput{Amount: 20000, Date: "2024-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	assertGoalTotal(t, goal, 40050)

	goal, err = svc.DeleteContribution(ctx, u, goal.ID, first)
	if err != nil {
		t.Fatal(err)
	}
	assertGoalTotal(t, goal, 20050)

	if _, err := svc.DeleteContribution(ctx, u, goal.ID, first); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
	if _, err := svc.AddContribution(ctx, u, goal.ID, ContributionInput{Amount: 0}); err == nil {
		t.Fatal("zero contribution must be rejected")
	}
}

func TestGoalsOfOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, "ana", model.RoleMember, nil)
	b := f.user(t, "bia", model.RoleMember, nil)
	admin := f.user(t, "root", model.RoleSuperAdmin, nil)
	svc := NewGoalService(f.goals, f.userService())

	goal, err := svc.Create(ctx, a, GoalInput{Name: "Carro", TargetAmount: 100})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, b, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get by stranger = %v", err)
	}
	if err := svc.Delete(ctx, b, goal.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete by stranger = %v", err)
	}
	goals, err := svc.List(ctx, admin, a.ID)
	if err != nil || len(goals) != 1 {
		t.Fatalf("admin List = %d, %v", len(goals), err)
	}
	if err := svc.Delete(ctx, a, goal.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestGoalValidation(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	svc := NewGoalService(f.goals, f.userService())

	tests := []struct {
		name  string
		in    GoalInput
		field string
	}{
		{"name", GoalInput{TargetAmount: 100}, "name"},
		{"target", GoalInput{Name: "x"}, "targetAmount"},
		{"deadline", GoalInput{Name: "x", TargetAmount: 100, Deadline: ptr("amanhã")}, "deadline"},
		{"rate", GoalInput{Name: "x", TargetAmount: 100, InterestRate: -1}, "interestRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), u, tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("Create = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}
