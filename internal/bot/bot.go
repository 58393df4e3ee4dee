package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/repository"
	"family-finance/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
)

const (
	btnConfirm       = "✅ Confirmar"
	btnCancel        = "↩️ Cancelar"
	menuLabelSummary = "💰 Resumo"
	menuLabelTasks   = "📋 Tarefas"
	menuLabelHelp    = "ℹ️ Ajuda"
)

// pendingExpense is a parsed expense waiting for the user's confirmation.
type pendingExpense struct {
	input service.TransactionInput
}

// Bot connects the Telegram API with the finance services. Chats are bound
// to accounts with a one-time code issued by the web app.
type Bot struct {
	api         *tgbotapi.BotAPI
	userRepo    *repository.UserRepository
	taskSvc     *service.TaskService
	txSvc       *service.TransactionService
	reminderSvc *service.ReminderService
	logger      *log.Logger
	pending     map[int64]pendingExpense
	mu          sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, txSvc *service.TransactionService, reminderSvc *service.ReminderService, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger = logger.WithComponent(log.ComponentBot)
	logger.Info("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:         api,
		userRepo:    userRepo,
		taskSvc:     taskSvc,
		txSvc:       txSvc,
		reminderSvc: reminderSvc,
		logger:      logger,
		pending:     make(map[int64]pendingExpense),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Warn("handle callback", log.FieldError, err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Warn("handle message", log.FieldError, err)
			}
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if msg.IsCommand() {
		b.logger.Debug("command", "chat", msg.Chat.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}
	if exp, ok := b.getPending(msg.Chat.ID); ok {
		return b.handleExpenseConfirmation(ctx, msg, exp)
	}
	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}
	return b.sendText(msg.Chat.ID, "Não entendi. Use /gasto para registrar uma despesa ou /ajuda para ver os comandos.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "ajuda", "help":
		return b.handleHelp(msg)
	case "vincular", "link":
		return b.handleLink(ctx, msg)
	case "resumo", "summary":
		return b.handleSummary(ctx, msg)
	case "tarefas", "tasks":
		return b.handleListTasks(ctx, msg)
	case "gasto", "expense":
		return b.handleExpense(ctx, msg)
	case "cancelar", "cancel":
		b.clearPending(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Operação cancelada.")
	default:
		return b.sendText(msg.Chat.ID, "Comando não suportado. Veja /ajuda.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if code := strings.TrimSpace(msg.CommandArguments()); code != "" {
		return b.link(ctx, msg.Chat.ID, code)
	}
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "olá"
	}
	text := fmt.Sprintf("👋 Olá, %s!\n<b>Eu envio seu resumo financeiro e as tarefas da família.</b>\n\n"+
		"Para começar, gere um código no aplicativo e envie /vincular &lt;código&gt;.", html.EscapeString(name))
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Comandos</b>\n" +
		"• /vincular &lt;código&gt; — conectar este chat à sua conta\n" +
		"• /resumo — orçamento do mês, contas e tarefas\n" +
		"• /tarefas — tarefas abertas da família\n" +
		"• /gasto &lt;texto&gt; — registrar uma despesa (ex: /gasto 45 mercado)\n" +
		"• /cancelar — cancelar a operação atual"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		return b.sendText(msg.Chat.ID, "Informe o código: /vincular ABC123")
	}
	return b.link(ctx, msg.Chat.ID, code)
}

func (b *Bot) link(ctx context.Context, chatID int64, code string) error {
	user, err := b.userRepo.LinkTelegram(ctx, strings.ToUpper(code), chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return b.sendText(chatID, "Código inválido ou já utilizado.")
	}
	if err != nil {
		return err
	}
	b.logger.Info("chat linked", log.FieldUserID, user.ID)
	return b.sendText(chatID, fmt.Sprintf("✅ Chat vinculado à conta <b>%s</b>.", html.EscapeString(user.Name)))
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil || user == nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Não foi possível gerar o resumo: %s", html.EscapeString(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil || user == nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

// handleExpense parses free text into an expense and asks for confirmation
// before saving it.
func (b *Bot) handleExpense(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil || user == nil {
		return err
	}
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		return b.sendText(msg.Chat.ID, "Descreva a despesa: /gasto 45 mercado")
	}
	draft, err := b.txSvc.Parse(ctx, service.ParseInput{Text: text})
	if err != nil {
		return err
	}
	if draft.Amount <= 0 || draft.Description == "" {
		return b.sendText(msg.Chat.ID, "Não consegui entender a despesa. Tente algo como /gasto 45 mercado.")
	}

	input := service.TransactionInput{
		Description: draft.Description,
		Amount:      draft.Amount,
		Date:        draft.Date,
		Category:    draft.Category,
		Type:        string(draft.Type),
		IsRecurring: draft.IsRecurring,
		Frequency:   string(draft.Frequency),
	}
	b.setPending(msg.Chat.ID, pendingExpense{input: input})

	category := input.Category
	if category == "" {
		category = "—"
	}
	prompt := fmt.Sprintf("Registrar <b>%s</b> de %s em %s (%s)?",
		html.EscapeString(input.Description), input.Amount, html.EscapeString(category), input.Date)
	return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
}

func (b *Bot) handleExpenseConfirmation(ctx context.Context, msg *tgbotapi.Message, exp pendingExpense) error {
	switch strings.TrimSpace(msg.Text) {
	case btnConfirm:
		b.clearPending(msg.Chat.ID)
		user, err := b.linkedUser(ctx, msg.Chat.ID)
		if err != nil || user == nil {
			return err
		}
		tx, err := b.txSvc.Create(ctx, user, exp.input)
		if err != nil {
			var verr *service.ValidationError
			if errors.As(err, &verr) {
				return b.sendText(msg.Chat.ID, "Dados inválidos: "+html.EscapeString(verr.Error()))
			}
			return err
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Despesa «%s» registrada em %s.", html.EscapeString(tx.Description), html.EscapeString(tx.Category)))
	case btnCancel:
		b.clearPending(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "↩️ Despesa descartada.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirme ou cancele a despesa.", confirmKeyboard())
	}
}

// SendDailyDigests sends the daily summary to every linked chat.
func (b *Bot) SendDailyDigests(ctx context.Context) error {
	users, err := b.userRepo.ListTelegramLinked(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	sent := 0
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramChatID == nil {
			continue
		}
		text, err := b.reminderSvc.DailySummary(ctx, user, now)
		if err != nil {
			b.logger.Warn("build digest", log.FieldUserID, user.ID, log.FieldError, err)
			continue
		}
		if err := b.sendText(*user.TelegramChatID, text); err != nil {
			b.logger.Warn("send digest", log.FieldUserID, user.ID, log.FieldError, err)
			continue
		}
		sent++
	}
	b.logger.Info("daily digests sent", log.FieldCount, sent)
	return nil
}

// SendText delivers a plain notification to chatID.
func (b *Bot) SendText(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, html.EscapeString(text))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*model.User, error) {
	user, err := b.userRepo.FindByTelegramChatID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, b.sendText(chatID, "Este chat ainda não está vinculado. Gere um código no aplicativo e envie /vincular &lt;código&gt;.")
	}
	return user, err
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Não foi possível carregar as tarefas: %s", html.EscapeString(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "Nenhuma tarefa aberta na família. 🎉")
	}

	now := time.Now()
	var builder strings.Builder
	builder.WriteString("📋 <b>Tarefas da família</b>\n")
	builder.WriteString("Toque no botão para concluir uma tarefa.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		builder.WriteString(formatTask(i+1, task, now))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d · %s", i+1, shortTitle(task.Description, 24)), cbCompletePrefix+task.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("callback ack", log.FieldError, err)
	}

	chatID := cb.Message.Chat.ID
	switch data := cb.Data; {
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID := strings.TrimPrefix(data, cbCompletePrefix)
		return b.askCompleteConfirmation(ctx, chatID, taskID)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.sendText(chatID, "↩️ Tarefa mantida em aberto.")
	case strings.HasPrefix(data, cbConfirmPrefix):
		taskID := strings.TrimPrefix(data, cbConfirmPrefix)
		return b.completeTaskAndRefresh(ctx, chatID, taskID)
	default:
		return nil
	}
}

func (b *Bot) askCompleteConfirmation(ctx context.Context, chatID int64, taskID string) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil || user == nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, "Tarefa não encontrada.")
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+task.ID),
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+task.ID),
	))
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Concluir «%s»?", html.EscapeString(task.Description)), markup)
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil || user == nil {
		return err
	}
	task, err := b.taskSvc.GetTask(ctx, user, taskID)
	if err != nil {
		return b.sendText(chatID, "Tarefa não encontrada.")
	}
	if !task.IsCompleted {
		if task, err = b.taskSvc.ToggleTask(ctx, user, taskID); err != nil {
			return err
		}
	}
	if err := b.sendText(chatID, fmt.Sprintf("✅ Tarefa «%s» concluída.", html.EscapeString(task.Description))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelSummary:
		return true, b.handleSummary(ctx, msg)
	case menuLabelTasks:
		return true, b.handleListTasks(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getPending(chatID int64) (pendingExpense, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.pending[chatID]
	return exp, ok
}

func (b *Bot) setPending(chatID int64, exp pendingExpense) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[chatID] = exp
}

func (b *Bot) clearPending(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, chatID)
}
