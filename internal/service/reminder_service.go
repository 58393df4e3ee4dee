package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"family-finance/internal/model"
	"family-finance/internal/month"
	"family-finance/internal/repository"
)

// ReminderService builds human-readable summaries for daily chat notifications.
type ReminderService struct {
	budgets *BudgetService
	tasks   *repository.TaskRepository
	txs     *repository.TransactionRepository
}

func NewReminderService(budgets *BudgetService, tasks *repository.TaskRepository, txs *repository.TransactionRepository) *ReminderService {
	return &ReminderService{budgets: budgets, tasks: tasks, txs: txs}
}

// DailySummary renders user's budget status, recurring bills due within a
// week and the family's open tasks as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	summary, err := s.budgets.Summary(ctx, user.ID, month.Current(now))
	if err != nil {
		return "", err
	}
	due, err := s.txs.ListUpcomingRecurring(ctx, user.ID, now.AddDate(0, 0, 7).Format(time.DateOnly))
	if err != nil {
		return "", err
	}
	var tasks []model.FamilyTask
	if user.FamilyID != nil {
		if tasks, err = s.tasks.ListOpen(ctx, *user.FamilyID); err != nil {
			return "", err
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Resumo diário</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02/01/2006")))

	builder.WriteString("💰 <b>Orçamento do mês</b>\n")
	if len(summary) == 0 {
		builder.WriteString("— nenhum limite definido\n")
	} else {
		for _, item := range summary {
			builder.WriteString(formatBudgetItem(item))
		}
	}

	builder.WriteString("\n♻️ <b>Contas recorrentes</b>\n")
	if len(due) == 0 {
		builder.WriteString("— nada vencendo nos próximos 7 dias\n")
	} else {
		for _, tx := range due {
			builder.WriteString(formatRecurring(tx, now))
		}
	}

	builder.WriteString("\n🔥 <b>Tarefas da família</b>\n")
	if len(tasks) == 0 {
		builder.WriteString("— nenhuma tarefa aberta\n")
	} else {
		for _, task := range tasks {
			builder.WriteString(formatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatBudgetItem(item SummaryItem) string {
	icon := "🟢"
	switch {
	case item.Percentage >= 100:
		icon = "🔴"
	case item.Percentage >= 80:
		icon = "🟡"
	}
	return fmt.Sprintf("%s %s: %s / %s (%.0f%%)\n",
		icon, html.EscapeString(item.Category), item.Spent, item.Limit, item.Percentage)
}

func formatRecurring(tx model.Transaction, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("♻️ %s · %s", html.EscapeString(strings.TrimSpace(tx.Description)), tx.Amount))
	if tx.NextDueDate != nil {
		label := *tx.NextDueDate
		if label < now.Format(time.DateOnly) {
			label += " — <b>vencida</b>"
		}
		sb.WriteString(fmt.Sprintf("\n   📆 %s", label))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatTask(task model.FamilyTask, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.DueDate != nil {
		if d, err := time.ParseInLocation(time.DateOnly, *task.DueDate, now.Location()); err == nil {
			switch {
			case now.After(d.AddDate(0, 0, 1)):
				icon = "⚠️"
			case d.Sub(now) <= 48*time.Hour:
				icon = "⏳"
			}
		}
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Description))))
	if task.DueDate != nil {
		sb.WriteString(fmt.Sprintf("\n   ⏰ até %s", *task.DueDate))
	}
	sb.WriteByte('\n')
	return sb.String()
}
