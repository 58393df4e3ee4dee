package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/month"
)

// TransactionFilter narrows List. Zero fields are ignored.
type TransactionFilter struct {
	UserIDs  []string
	Month    *month.Month
	Type     model.TransactionType
	Category string
	Limit    int
}

// TransactionRepository handles CRUD and aggregates over transactions.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// CreateBatch inserts many rows in one statement batch.
func (r *TransactionRepository) CreateBatch(ctx context.Context, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(txs, 200).Error; err != nil {
		return fmt.Errorf("create transactions: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	var tx model.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *model.Transaction) error {
	if err := r.db.WithContext(ctx).Save(tx).Error; err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Transaction{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns transactions newest first.
func (r *TransactionRepository) List(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&model.Transaction{})
	if len(f.UserIDs) > 0 {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if f.Month != nil {
		from, to := f.Month.Bounds()
		q = q.Where("date >= ? AND date < ?", from, to)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var txs []model.Transaction
	if err := q.Order("date DESC, created_at DESC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// FindLatestByDescription returns the newest transaction of userID whose
// description matches desc ignoring case and surrounding blanks.
func (r *TransactionRepository) FindLatestByDescription(ctx context.Context, userID, desc string) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND lower(trim(description)) = lower(trim(?))", userID, desc).
		Order("created_at DESC").
		First(&tx).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

type categoryTotal struct {
	Category string
	Total    int64
}

// SumExpensesByCategory totals userIDs' EXPENSE transactions per category in m.
func (r *TransactionRepository) SumExpensesByCategory(ctx context.Context, userIDs []string, m month.Month) (map[string]money.Cents, error) {
	from, to := m.Bounds()
	var rows []categoryTotal
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("category, COALESCE(SUM(amount_cents), 0) AS total").
		Where("user_id IN ? AND type = ? AND date >= ? AND date < ?", userIDs, model.Expense, from, to).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}

	totals := make(map[string]money.Cents, len(rows))
	for _, row := range rows {
		totals[row.Category] = money.Cents(row.Total)
	}
	return totals, nil
}

// ListUpcomingRecurring returns userID's recurring transactions due on or before day.
func (r *TransactionRepository) ListUpcomingRecurring(ctx context.Context, userID, day string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_recurring = ? AND next_due_date IS NOT NULL AND next_due_date <= ?", userID, true, day).
		Order("next_due_date ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
