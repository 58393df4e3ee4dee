package service

import (
	"context"
	"strings"
	"time"

	"family-finance/internal/ai"
	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/month"
	"family-finance/internal/repository"
)

// TransactionInput is the body of a transaction create or update.
type TransactionInput struct {
	Description string      `json:"description"`
	Amount      money.Cents `json:"amount"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
	IsRecurring bool        `json:"isRecurring"`
	Frequency   string      `json:"frequency"`
}

// TransactionQuery narrows a listing. Month is "YYYY-MM".
type TransactionQuery struct {
	UserID   string
	Month    string
	Type     string
	Category string
}

// ParseInput carries free text or an audio/image attachment to parse.
type ParseInput struct {
	Text     string
	MimeType string
	Data     []byte
}

type TransactionService struct {
	txs    *repository.TransactionRepository
	users  *UserService
	ai     *ai.Assistant
	notify *NotificationService
	now    func() time.Time
}

func NewTransactionService(txs *repository.TransactionRepository, users *UserService, assistant *ai.Assistant, notify *NotificationService) *TransactionService {
	return &TransactionService{txs: txs, users: users, ai: assistant, notify: notify, now: time.Now}
}

// List returns the transactions of q.UserID (the viewer when empty).
func (s *TransactionService) List(ctx context.Context, viewer *model.User, q TransactionQuery) ([]model.Transaction, error) {
	subject, err := s.users.Subject(ctx, viewer, q.UserID)
	if err != nil {
		return nil, err
	}
	f, err := q.filter(subject.ID)
	if err != nil {
		return nil, err
	}
	return s.txs.List(ctx, f)
}

func (q TransactionQuery) filter(userID string) (repository.TransactionFilter, error) {
	f := repository.TransactionFilter{UserIDs: []string{userID}, Category: strings.TrimSpace(q.Category)}
	if q.Month != "" {
		m, err := month.Parse(q.Month)
		if err != nil {
			return f, invalid("month", "must be YYYY-MM")
		}
		f.Month = &m
	}
	if q.Type != "" {
		t, ok := model.ParseTransactionType(q.Type)
		if !ok {
			return f, invalid("type", "must be INCOME or EXPENSE")
		}
		f.Type = t
	}
	return f, nil
}

func (s *TransactionService) Create(ctx context.Context, user *model.User, in TransactionInput) (*model.Transaction, error) {
	tx := &model.Transaction{UserID: user.ID}
	if err := s.apply(ctx, user, tx, in); err != nil {
		return nil, err
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, user, tx)
	return tx, nil
}

// Update replaces the fields of one of user's transactions.
func (s *TransactionService) Update(ctx context.Context, user *model.User, id string, in TransactionInput) (*model.Transaction, error) {
	tx, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, user, tx, in); err != nil {
		return nil, err
	}
	if err := s.txs.Update(ctx, tx); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, user, tx)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, user *model.User, id string) error {
	if _, err := s.owned(ctx, user, id); err != nil {
		return err
	}
	return s.txs.Delete(ctx, id)
}

// Categorize reuses the category of the user's latest transaction with the
// same description, then asks the model, then falls back to the default.
func (s *TransactionService) Categorize(ctx context.Context, user *model.User, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", invalid("description", "is required")
	}
	return s.categorize(ctx, user, description), nil
}

func (s *TransactionService) categorize(ctx context.Context, user *model.User, description string) string {
	if prev, err := s.txs.FindLatestByDescription(ctx, user.ID, description); err == nil && prev.Category != "" {
		return prev.Category
	}
	return s.ai.Categorize(ctx, description)
}

// Parse turns text or an attachment into a draft; it never fails on model
// errors, returning an empty draft instead.
func (s *TransactionService) Parse(ctx context.Context, in ParseInput) (ai.Draft, error) {
	switch {
	case len(in.Data) > 0:
		mime := strings.ToLower(strings.TrimSpace(in.MimeType))
		if !strings.HasPrefix(mime, "audio/") && !strings.HasPrefix(mime, "image/") {
			return ai.Draft{}, invalid("mimeType", "must be an audio or image type")
		}
		return s.ai.ParseMedia(ctx, ai.Media{MimeType: mime, Data: in.Data}), nil
	case strings.TrimSpace(in.Text) != "":
		return s.ai.ParseText(ctx, in.Text), nil
	default:
		return ai.Draft{}, invalid("text", "text or file is required")
	}
}

// Analyze describes the spending behaviour of the viewer or userID.
func (s *TransactionService) Analyze(ctx context.Context, viewer *model.User, userID string) (ai.Analysis, error) {
	subject, err := s.users.Subject(ctx, viewer, userID)
	if err != nil {
		return ai.Analysis{}, err
	}
	txs, err := s.txs.List(ctx, repository.TransactionFilter{
		UserIDs: []string{subject.ID},
		Type:    model.Expense,
		Limit:   50,
	})
	if err != nil {
		return ai.Analysis{}, err
	}
	return s.ai.AnalyzeBehavior(ctx, expenses(txs)), nil
}

func (s *TransactionService) owned(ctx context.Context, user *model.User, id string) (*model.Transaction, error) {
	tx, err := s.txs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.UserID != user.ID {
		return nil, ErrNotFound
	}
	return tx, nil
}

func (s *TransactionService) apply(ctx context.Context, user *model.User, tx *model.Transaction, in TransactionInput) error {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return invalid("description", "is required")
	}
	if in.Amount <= 0 {
		return invalid("amount", "must be positive")
	}
	t, ok := model.ParseTransactionType(in.Type)
	if !ok {
		return invalid("type", "must be INCOME or EXPENSE")
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = s.now().Format(time.DateOnly)
	}
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return invalid("date", "must be YYYY-MM-DD")
	}

	tx.Description = desc
	tx.Amount = in.Amount
	tx.Type = t
	tx.Date = date
	tx.Category = strings.TrimSpace(in.Category)
	if tx.Category == "" {
		tx.Category = s.categorize(ctx, user, desc)
	}

	tx.IsRecurring = in.IsRecurring
	tx.Frequency = ""
	tx.NextDueDate = nil
	if in.IsRecurring {
		f, ok := model.ParseFrequency(in.Frequency)
		if !ok {
			return invalid("frequency", "must be WEEKLY, MONTHLY or YEARLY")
		}
		next := NextDueDate(day, f).Format(time.DateOnly)
		tx.Frequency = f
		tx.NextDueDate = &next
	}
	return nil
}

func (s *TransactionService) afterWrite(ctx context.Context, user *model.User, tx *model.Transaction) {
	if tx.Type == model.Expense && s.notify != nil {
		s.notify.CheckBudget(ctx, user, tx.Category, tx.Date)
	}
}

// NextDueDate is the next occurrence of a recurring transaction dated day.
func NextDueDate(day time.Time, f model.Frequency) time.Time {
	switch f {
	case model.Weekly:
		return day.AddDate(0, 0, 7)
	case model.Yearly:
		return day.AddDate(1, 0, 0)
	default:
		return day.AddDate(0, 1, 0)
	}
}

func expenses(txs []model.Transaction) []ai.Expense {
	out := make([]ai.Expense, 0, len(txs))
	for _, t := range txs {
		if t.Type != model.Expense {
			continue
		}
		out = append(out, ai.Expense{Date: t.Date, Category: t.Category, Amount: t.Amount})
	}
	return out
}
