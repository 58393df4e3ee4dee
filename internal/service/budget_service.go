package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"family-finance/internal/ai"
	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/month"
	"family-finance/internal/repository"
)

// HistoryMonths is how many months GET /budget/history returns.
const HistoryMonths = 12

// LimitInput is the body of a limit save. Limit is a pointer so an absent
// amount is told apart from zero.
type LimitInput struct {
	Category string       `json:"category"`
	Limit    *money.Cents `json:"limit"`
}

// SummaryItem compares one category's limit with its spending.
type SummaryItem struct {
	Category   string      `json:"category"`
	Limit      money.Cents `json:"limit"`
	Spent      money.Cents `json:"spent"`
	Percentage float64     `json:"percentage"`
}

// HistoryEntry is one category of a monthly snapshot.
type HistoryEntry struct {
	Category string      `json:"category"`
	Limit    money.Cents `json:"limit"`
	Spent    money.Cents `json:"spent"`
}

// BudgetService manages limits, spend summaries and monthly history.
type BudgetService struct {
	budgets *repository.BudgetRepository
	txs     *repository.TransactionRepository
	users   *repository.UserRepository
	ai      *ai.Assistant
	now     func() time.Time
}

func NewBudgetService(budgets *repository.BudgetRepository, txs *repository.TransactionRepository, users *repository.UserRepository, assistant *ai.Assistant, now func() time.Time) *BudgetService {
	if now == nil {
		now = time.Now
	}
	return &BudgetService{budgets: budgets, txs: txs, users: users, ai: assistant, now: now}
}

// CurrentMonth is the month the service considers "now".
func (s *BudgetService) CurrentMonth() month.Month {
	return month.Current(s.now())
}

// SaveLimit creates or replaces the caller's limit for a category.
func (s *BudgetService) SaveLimit(ctx context.Context, user *model.User, in LimitInput) (*model.BudgetLimit, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, invalid("category", "is required")
	}
	switch {
	case in.Limit == nil:
		return nil, invalid("limit", "is required")
	case *in.Limit < 0:
		return nil, invalid("limit", "must not be negative")
	}
	limit := &model.BudgetLimit{UserID: user.ID, Category: category, Limit: *in.Limit}
	if err := s.budgets.UpsertLimit(ctx, limit); err != nil {
		return nil, err
	}
	return limit, nil
}

// ListLimits returns the caller's limits; managers and super admins also see
// the limits of their family.
func (s *BudgetService) ListLimits(ctx context.Context, user *model.User) ([]model.BudgetLimit, error) {
	ids := []string{user.ID}
	if (user.Role == model.RoleManager || user.Role == model.RoleSuperAdmin) && user.FamilyID != nil {
		members, err := s.users.ListByFamily(ctx, *user.FamilyID)
		if err != nil {
			return nil, fmt.Errorf("list family: %w", err)
		}
		for _, m := range members {
			if m.ID != user.ID {
				ids = append(ids, m.ID)
			}
		}
	}
	return s.budgets.ListLimits(ctx, ids...)
}

func (s *BudgetService) DeleteLimit(ctx context.Context, user *model.User, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return invalid("category", "is required")
	}
	return s.budgets.DeleteLimit(ctx, user.ID, category)
}

// Summary compares userID's limits with their EXPENSE totals in m.
func (s *BudgetService) Summary(ctx context.Context, userID string, m month.Month) ([]SummaryItem, error) {
	limits, err := s.budgets.ListLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	spent, err := s.txs.SumExpensesByCategory(ctx, []string{userID}, m)
	if err != nil {
		return nil, err
	}

	items := make([]SummaryItem, 0, len(limits))
	for _, l := range limits {
		sp := spent[l.Category]
		items = append(items, SummaryItem{
			Category:   l.Category,
			Limit:      l.Limit,
			Spent:      sp,
			Percentage: money.Percent(sp, l.Limit),
		})
	}
	return items, nil
}

// History groups the caller's recent snapshots by month key.
func (s *BudgetService) History(ctx context.Context, userID string) (map[string][]HistoryEntry, error) {
	rows, err := s.budgets.ListHistory(ctx, userID, HistoryMonths)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]HistoryEntry)
	for _, r := range rows {
		grouped[r.Month] = append(grouped[r.Month], HistoryEntry{
			Category: r.Category,
			Limit:    r.Limit,
			Spent:    r.Spent,
		})
	}
	return grouped, nil
}

// SaveCurrentMonth snapshots the current month for userID immediately. It
// does not touch the snapshot watermark.
func (s *BudgetService) SaveCurrentMonth(ctx context.Context, userID string) (string, int, error) {
	m := s.CurrentMonth()
	rows, err := s.snapshotRows(ctx, userID, m)
	if err != nil {
		return "", 0, err
	}
	if err := s.budgets.UpsertHistory(ctx, rows); err != nil {
		return "", 0, err
	}
	return m.String(), len(rows), nil
}

// Suggest asks the model for monthly limits based on the user's recent
// expenses. It returns an empty list when no suggestion is available.
func (s *BudgetService) Suggest(ctx context.Context, userID string) ([]ai.Suggestion, error) {
	txs, err := s.txs.List(ctx, repository.TransactionFilter{
		UserIDs: []string{userID},
		Type:    model.Expense,
		Limit:   200,
	})
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 || s.ai == nil {
		return []ai.Suggestion{}, nil
	}
	return s.ai.SuggestBudgets(ctx, expenses(txs)), nil
}

// snapshotRows joins userID's current limits with their spending in m. A
// category without spending snapshots as zero; spending without a limit is
// not captured.
func (s *BudgetService) snapshotRows(ctx context.Context, userID string, m month.Month) ([]model.BudgetHistory, error) {
	limits, err := s.budgets.ListLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	if len(limits) == 0 {
		return nil, nil
	}
	spent, err := s.txs.SumExpensesByCategory(ctx, []string{userID}, m)
	if err != nil {
		return nil, err
	}

	rows := make([]model.BudgetHistory, 0, len(limits))
	for _, l := range limits {
		rows = append(rows, model.BudgetHistory{
			UserID:   userID,
			Category: l.Category,
			Month:    m.String(),
			Limit:    l.Limit,
			Spent:    spent[l.Category],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })
	return rows, nil
}
