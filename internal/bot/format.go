package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"family-finance/internal/model"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
)

func formatTask(n int, task model.FamilyTask, now time.Time) string {
	icon := iconDefault
	var due string
	if task.DueDate != nil {
		if d, err := time.ParseInLocation(time.DateOnly, *task.DueDate, now.Location()); err == nil {
			end := d.AddDate(0, 0, 1)
			switch {
			case now.After(end):
				icon = iconOverdue
				due = fmt.Sprintf("\n   ⏰ até %s · <b>atrasada</b>", *task.DueDate)
			case end.Sub(now) <= 48*time.Hour:
				icon = iconDue
				due = fmt.Sprintf("\n   ⏰ até %s", *task.DueDate)
			default:
				due = fmt.Sprintf("\n   ⏰ até %s", *task.DueDate)
			}
		}
	}
	return fmt.Sprintf("%s %d. %s%s\n", icon, n, html.EscapeString(strings.TrimSpace(task.Description)), due)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelSummary),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
