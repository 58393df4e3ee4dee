package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"family-finance/internal/ai"
	"family-finance/internal/amqp"
	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/money"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.BudgetAlertMessage
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type recordingChat struct {
	texts map[int64][]string
}

func (c *recordingChat) SendText(_ context.Context, chatID int64, text string) error {
	if c.texts == nil {
		c.texts = make(map[int64][]string)
	}
	c.texts[chatID] = append(c.texts[chatID], text)
	return nil
}

func newTransactionService(f *fixture, now func() time.Time) (*TransactionService, *NotificationService) {
	notify := NewNotificationService(f.notifications, f.budgets, f.txs, 90, log.Discard())
	notify.now = now
	svc := NewTransactionService(f.txs, f.userService(), ai.NewAssistant(nil, 0, log.Discard()), notify)
	svc.now = now
	return svc, notify
}

func TestNextDueDate(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	tests := []struct {
		from string
		freq model.Frequency
		want string
	}{
		{"2024-03-10", model.Weekly, "2024-03-17"},
		{"2024-03-10", model.Monthly, "2024-04-10"},
		{"2024-12-15", model.Monthly, "2025-01-15"},
		{"2024-02-29", model.Yearly, "2025-03-01"},
		{"2024-03-10", model.Yearly, "2025-03-10"},
	}
	for _, tt := range tests {
		if got := NextDueDate(day(tt.from), tt.freq).Format(time.DateOnly); got != tt.want {
			t.Errorf("NextDueDate(%s, %s) = %s, want %s", tt.from, tt.freq, got, tt.want)
		}
	}
}

func TestCreateRecurringTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	svc, _ := newTransactionService(f, clock(2024, time.March, 10))

	tx, err := svc.Create(ctx, u, TransactionInput{
		Description: "Internet",
		Amount:      9990,
		Date:        "2024-03-05",
		Category:    "Moradia",
		Type:        "despesa",
		IsRecurring: true,
		Frequency:   "monthly",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.Type != model.Expense || tx.Frequency != model.Monthly {
		t.Fatalf("transaction = %+v", tx)
	}
	if tx.NextDueDate == nil || *tx.NextDueDate != "2024-04-05" {
		t.Fatalf("nextDueDate = %v", tx.NextDueDate)
	}

	// turning recurrence off clears the schedule
	tx, err = svc.Update(ctx, u, tx.ID, TransactionInput{Description: "Internet", Amount: 9990, Date: "2024-03-05", Category: "Moradia", Type: "EXPENSE"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if tx.IsRecurring || tx.NextDueDate != nil || tx.Frequency != "" {
		t.Fatalf("updated transaction = %+v", tx)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	svc, _ := newTransactionService(f, clock(2024, time.March, 10))

	valid := TransactionInput{Description: "Pão", Amount: 500, Type: "EXPENSE", Date: "2024-03-01"}
	tests := []struct {
		name   string
		mutate func(*TransactionInput)
		field  string
	}{
		{"description", func(in *TransactionInput) { in.Description = " " }, "description"},
		{"amount", func(in *TransactionInput) { in.Amount = 0 }, "amount"},
		{"type", func(in *TransactionInput) { in.Type = "TRANSFER" }, "type"},
		{"date", func(in *TransactionInput) { in.Date = "01/03/2024" }, "date"},
		{"frequency", func(in *TransactionInput) { in.IsRecurring = true }, "frequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), u, in)
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("Create = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestCategorizePrefersHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	svc, _ := newTransactionService(f, clock(2024, time.March, 10))

	if _, err := svc.Create(ctx, u, TransactionInput{Description: "Padaria", Amount: 1200, Type: "EXPENSE", Category: "Alimentação"}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Categorize(ctx, u, "Padaria")
	if err != nil || got != "Alimentação" {
		t.Fatalf("Categorize(Padaria) = %q, %v", got, err)
	}
	got, err = svc.Categorize(ctx, u, "Algo novo")
	if err != nil || got != ai.DefaultCategory {
		t.Fatalf("Categorize(new) = %q, %v", got, err)
	}

	tx, err := svc.Create(ctx, u, TransactionInput{Description: "Algo novo", Amount: 100, Type: "EXPENSE"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Category != ai.DefaultCategory || tx.Date != "2024-03-10" {
		t.Fatalf("defaults = %+v", tx)
	}
}

func TestTransactionsOfOthersAreNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.user(t, "ana", model.RoleMember, nil)
	b := f.user(t, "bia", model.RoleMember, nil)
	svc, _ := newTransactionService(f, clock(2024, time.March, 10))
	tx := f.tx(t, a.ID, "2024-03-01", "Food", model.Expense, 100)

	if err := svc.Delete(ctx, b, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete by other = %v", err)
	}
	if _, err := svc.Update(ctx, b, tx.ID, TransactionInput{Description: "x", Amount: 1, Type: "EXPENSE"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update by other = %v", err)
	}
	if _, err := svc.List(ctx, b, TransactionQuery{UserID: a.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("List of other = %v", err)
	}
	if err := svc.Delete(ctx, a, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete missing = %v", err)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	svc, _ := newTransactionService(f, clock(2024, time.March, 10))
	f.tx(t, u.ID, "2024-03-01", "Food", model.Expense, 100)
	f.tx(t, u.ID, "2024-03-02", "Salary", model.Income, 500000)
	f.tx(t, u.ID, "2024-02-20", "Food", model.Expense, 300)

	march, err := svc.List(ctx, u, TransactionQuery{Month: "2024-03"})
	if err != nil || len(march) != 2 {
		t.Fatalf("march = %d, %v", len(march), err)
	}
	expenses, err := svc.List(ctx, u, TransactionQuery{Type: "expense"})
	if err != nil || len(expenses) != 2 {
		t.Fatalf("expenses = %d, %v", len(expenses), err)
	}
	if _, err := svc.List(ctx, u, TransactionQuery{Month: "março"}); err == nil {
		t.Fatal("expected a validation error for a bad month")
	}
}

func TestBudgetAlertsAreRaisedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ana", model.RoleMember, nil)
	chatID := int64(4242)
	u.TelegramChatID = &chatID
	f.limit(t, u.ID, "Food", 10000)

	svc, notify := newTransactionService(f, clock(2024, time.March, 10))
	pub := &recordingPublisher{}
	chat := &recordingChat{}
	notify.SetPublisher(pub)
	notify.SetChatNotifier(chat)

	spend := func(date string, amount int64) {
		t.Helper()
		in := TransactionInput{Description: "Mercado", Amount: money.Cents(amount), Date: date, Category: "Food", Type: "EXPENSE"}
		if _, err := svc.Create(ctx, u, in); err != nil {
			t.Fatal(err)
		}
	}

	spend("2024-03-01", 8000) // 80%: nothing
	spend("2024-03-02", 1500) // 95%: warning
	spend("2024-03-03", 100)  // 96%: warning already sent
	spend("2024-02-10", 9000) // last month: not checked
	spend("2024-03-04", 500)  // 101%: exceeded

	items, err := notify.List(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[string]int{}
	for _, n := range items {
		kinds[n.Kind]++
	}
	if len(items) != 2 || kinds[KindBudgetWarning] != 1 || kinds[KindBudgetExceeded] != 1 {
		t.Fatalf("notifications = %+v", items)
	}
	if len(pub.msgs) != 2 || pub.msgs[1].Kind != KindBudgetExceeded || pub.msgs[1].Month != "2024-03" {
		t.Fatalf("published = %+v", pub.msgs)
	}
	if len(chat.texts[chatID]) != 2 {
		t.Fatalf("chat messages = %v", chat.texts)
	}

	if err := notify.MarkRead(ctx, u.ID, items[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := notify.MarkRead(ctx, "someone-else", items[1].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkRead by other = %v", err)
	}
}

func TestParseRequiresInput(t *testing.T) {
	f := newFixture(t)
	svc, _ := newTransactionService(f, clock(2024, time.March, 10))
	ctx := context.Background()

	if _, err := svc.Parse(ctx, ParseInput{}); err == nil {
		t.Fatal("expected an error without text or file")
	}
	if _, err := svc.Parse(ctx, ParseInput{Data: []byte("%PDF"), MimeType: "application/pdf"}); err == nil {
		t.Fatal("expected an error for a pdf")
	}
	draft, err := svc.Parse(ctx, ParseInput{Text: "gastei 20 no almoço"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if draft.Type != model.Expense || draft.Amount != 0 {
		t.Fatalf("fallback draft = %+v", draft)
	}
}
