package service

import (
	"context"
	"strings"
	"time"

	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/repository"
)

type GoalInput struct {
	Name         string      `json:"name"`
	TargetAmount money.Cents `json:"targetAmount"`
	Deadline     *string     `json:"deadline"`
	Color        string      `json:"color"`
	InterestRate float64     `json:"interestRate"`
}

// ContributionInput adds to (or, when negative, withdraws from) a goal.
type ContributionInput struct {
	Amount money.Cents `json:"amount"`
	Date   string      `json:"date"`
	Note   string      `json:"note"`
}

// GoalService manages savings goals. A goal's current amount is always the
// sum of its contribution history.
type GoalService struct {
	goals *repository.GoalRepository
	users *UserService
	now   func() time.Time
}

func NewGoalService(goals *repository.GoalRepository, users *UserService) *GoalService {
	return &GoalService{goals: goals, users: users, now: time.Now}
}

// List returns the goals of userID (the viewer when empty).
func (s *GoalService) List(ctx context.Context, viewer *model.User, userID string) ([]model.SavingsGoal, error) {
	subject, err := s.users.Subject(ctx, viewer, userID)
	if err != nil {
		return nil, err
	}
	return s.goals.ListByUsers(ctx, subject.ID)
}

func (s *GoalService) Get(ctx context.Context, viewer *model.User, id string) (*model.SavingsGoal, error) {
	goal, err := s.goals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != viewer.ID {
		if _, err := s.users.Subject(ctx, viewer, goal.UserID); err != nil {
			return nil, ErrNotFound
		}
	}
	return goal, nil
}

func (s *GoalService) Create(ctx context.Context, user *model.User, in GoalInput) (*model.SavingsGoal, error) {
	goal := &model.SavingsGoal{UserID: user.ID}
	if err := applyGoal(goal, in); err != nil {
		return nil, err
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, err
	}
	goal.History = []model.GoalTransaction{}
	return goal, nil
}

func (s *GoalService) Update(ctx context.Context, user *model.User, id string, in GoalInput) (*model.SavingsGoal, error) {
	goal, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := applyGoal(goal, in); err != nil {
		return nil, err
	}
	if err := s.goals.UpdateDetails(ctx, goal); err != nil {
		return nil, err
	}
	return s.goals.FindByID(ctx, id)
}

func (s *GoalService) Delete(ctx context.Context, user *model.User, id string) error {
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}
	return s.goals.Delete(ctx, id)
}

// AddContribution appends to the goal's history and returns the goal with
// its recomputed total.
func (s *GoalService) AddContribution(ctx context.Context, user *model.User, goalID string, in ContributionInput) (*model.SavingsGoal, error) {
	if _, err := s.owned(ctx, user, goalID); err != nil {
		return nil, err
	}
	entry, err := s.contribution(user, goalID, in)
	if err != nil {
		return nil, err
	}
	if err := s.goals.AddContribution(ctx, entry); err != nil {
		return nil, err
	}
	return s.goals.FindByID(ctx, goalID)
}

func (s *GoalService) UpdateContribution(ctx context.Context, user *model.User, goalID, entryID string, in ContributionInput) (*model.SavingsGoal, error) {
	if _, err := s.owned(ctx, user, goalID); err != nil {
		return nil, err
	}
	entry, err := s.contribution(user, goalID, in)
	if err != nil {
		return nil, err
	}
	entry.ID = entryID
	if err := s.goals.UpdateContribution(ctx, entry); err != nil {
		return nil, err
	}
	return s.goals.FindByID(ctx, goalID)
}

func (s *GoalService) DeleteContribution(ctx context.Context, user *model.User, goalID, entryID string) (*model.SavingsGoal, error) {
	if _, err := s.owned(ctx, user, goalID); err != nil {
		return nil, err
	}
	if err := s.goals.DeleteContribution(ctx, goalID, entryID); err != nil {
		return nil, err
	}
	return s.goals.FindByID(ctx, goalID)
}

func (s *GoalService) owned(ctx context.Context, user *model.User, id string) (*model.SavingsGoal, error) {
	goal, err := s.goals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != user.ID {
		return nil, ErrNotFound
	}
	return goal, nil
}

func (s *GoalService) contribution(user *model.User, goalID string, in ContributionInput) (*model.GoalTransaction, error) {
	if in.Amount == 0 {
		return nil, invalid("amount", "must not be zero")
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.now().Format(time.DateOnly)
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	return &model.GoalTransaction{
		GoalID: goalID,
		UserID: user.ID,
		Date:   date,
		Amount: in.Amount,
		Note:   strings.TrimSpace(in.Note),
	}, nil
}

func applyGoal(goal *model.SavingsGoal, in GoalInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	if in.TargetAmount <= 0 {
		return invalid("targetAmount", "must be positive")
	}
	if in.InterestRate < 0 {
		return invalid("interestRate", "must not be negative")
	}
	deadline := in.Deadline
	if deadline != nil && strings.TrimSpace(*deadline) == "" {
		deadline = nil
	}
	if deadline != nil {
		if _, err := time.Parse(time.DateOnly, *deadline); err != nil {
			return invalid("deadline", "must be YYYY-MM-DD")
		}
	}
	goal.Name = name
	goal.TargetAmount = in.TargetAmount
	goal.Deadline = deadline
	goal.Color = strings.TrimSpace(in.Color)
	goal.InterestRate = in.InterestRate
	return nil
}
