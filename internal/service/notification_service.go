package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"family-finance/internal/amqp"
	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/money"
	"family-finance/internal/month"
	"family-finance/internal/repository"
)

// Notification kinds.
const (
	KindBudgetWarning  = "BUDGET_WARNING"
	KindBudgetExceeded = "BUDGET_EXCEEDED"
)

// AlertPublisher forwards budget alerts to a message broker.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// ChatNotifier delivers a text message to a linked chat.
type ChatNotifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// NotificationService stores in-app notifications and raises budget alerts.
type NotificationService struct {
	repo      *repository.NotificationRepository
	budgets   *repository.BudgetRepository
	txs       *repository.TransactionRepository
	threshold float64
	publisher AlertPublisher
	chat      ChatNotifier
	logger    *log.Logger
	now       func() time.Time
}

func NewNotificationService(repo *repository.NotificationRepository, budgets *repository.BudgetRepository, txs *repository.TransactionRepository, threshold float64, logger *log.Logger) *NotificationService {
	return &NotificationService{
		repo:      repo,
		budgets:   budgets,
		txs:       txs,
		threshold: threshold,
		logger:    logger.WithComponent(log.ComponentNotify),
		now:       time.Now,
	}
}

// SetPublisher enables broker fan-out of alerts.
func (s *NotificationService) SetPublisher(p AlertPublisher) {
	s.publisher = p
}

// SetChatNotifier enables chat delivery of alerts.
func (s *NotificationService) SetChatNotifier(c ChatNotifier) {
	s.chat = c
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, userID, 100)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// CheckBudget raises at most one warning and one exceeded alert per
// category and month once user's spending in category passes the threshold
// or the limit. Only the current month is checked. Failures are logged.
func (s *NotificationService) CheckBudget(ctx context.Context, user *model.User, category, date string) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return
	}
	m := month.Of(day)
	if m != month.Current(s.now()) {
		return
	}
	if err := s.checkBudget(ctx, user, category, m); err != nil {
		s.logger.ErrorContext(ctx, "budget alert check failed",
			log.FieldOperation, log.OpAlert,
			log.FieldUserID, user.ID,
			log.FieldCategory, category,
			log.FieldError, err,
		)
	}
}

func (s *NotificationService) checkBudget(ctx context.Context, user *model.User, category string, m month.Month) error {
	limit, err := s.budgets.FindLimit(ctx, user.ID, category)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if limit.Limit <= 0 {
		return nil
	}
	totals, err := s.txs.SumExpensesByCategory(ctx, []string{user.ID}, m)
	if err != nil {
		return err
	}
	spent := totals[category]
	pct := money.Percent(spent, limit.Limit)

	var kind, title, message string
	switch {
	case pct >= 100:
		kind = KindBudgetExceeded
		title = "Orçamento excedido"
		message = fmt.Sprintf("Você gastou %s de %s em %s (%.0f%%).", spent, limit.Limit, category, pct)
	case pct >= s.threshold:
		kind = KindBudgetWarning
		title = "Orçamento quase no limite"
		message = fmt.Sprintf("Você já usou %.0f%% do orçamento de %s (%s de %s).", pct, category, spent, limit.Limit)
	default:
		return nil
	}

	ref := category + "@" + m.String()
	seen, err := s.repo.Exists(ctx, user.ID, kind, ref)
	if err != nil || seen {
		return err
	}
	n := &model.Notification{UserID: user.ID, Kind: kind, Ref: ref, Title: title, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "budget alert raised",
		log.FieldOperation, log.OpAlert,
		log.FieldUserID, user.ID,
		log.FieldCategory, category,
		"kind", kind,
	)

	if s.publisher != nil {
		msg := &amqp.BudgetAlertMessage{
			Kind:       kind,
			UserID:     user.ID,
			Category:   category,
			Month:      m.String(),
			Limit:      limit.Limit,
			Spent:      spent,
			Percentage: pct,
			Timestamp:  s.now().UTC(),
		}
		if err := s.publisher.PublishBudgetAlert(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "publish budget alert failed", log.FieldUserID, user.ID, log.FieldError, err)
		}
	}
	if s.chat != nil && user.TelegramChatID != nil {
		if err := s.chat.SendText(ctx, *user.TelegramChatID, title+"\n"+message); err != nil {
			s.logger.WarnContext(ctx, "chat budget alert failed", log.FieldUserID, user.ID, log.FieldError, err)
		}
	}
	return nil
}
