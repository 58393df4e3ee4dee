package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/money"
)

// DefaultCategory is used whenever a transaction cannot be categorized.
const DefaultCategory = "Geral"

// Draft is a transaction extracted from free text, audio or an image. Zero
// fields were not recognized.
type Draft struct {
	Description string                `json:"description"`
	Amount      money.Cents           `json:"amount"`
	Type        model.TransactionType `json:"type"`
	Category    string                `json:"category"`
	Date        string                `json:"date"`
	IsRecurring bool                  `json:"isRecurring"`
	Frequency   model.Frequency       `json:"frequency,omitempty"`
}

// Suggestion is a proposed monthly limit for one category.
type Suggestion struct {
	Category string      `json:"category"`
	Limit    money.Cents `json:"limit"`
}

// Analysis describes a user's spending behaviour.
type Analysis struct {
	Persona             string      `json:"persona"`
	PatternDescription  string      `json:"patternDescription"`
	NextMonthProjection money.Cents `json:"nextMonthProjection"`
	Tip                 string      `json:"tip"`
}

// FallbackAnalysis is returned when the model cannot produce an analysis.
func FallbackAnalysis() Analysis {
	return Analysis{
		Persona:            "Em Análise",
		PatternDescription: "Dados insuficientes para análise detalhada.",
		Tip:                "Continue registrando seus gastos.",
	}
}

// Expense is the compact form of a transaction fed to prompts.
type Expense struct {
	Date     string      `json:"d,omitempty"`
	Category string      `json:"c"`
	Amount   money.Cents `json:"a"`
}

// Assistant runs the prompts. A nil Completer makes every call return its
// fallback.
type Assistant struct {
	completer Completer
	logger    *log.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewAssistant(completer Completer, timeout time.Duration, logger *log.Logger) *Assistant {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Assistant{
		completer: completer,
		logger:    logger.WithComponent(log.ComponentAI),
		timeout:   timeout,
		now:       time.Now,
	}
}

// Enabled reports whether a model is configured.
func (a *Assistant) Enabled() bool {
	return a.completer != nil
}

func (a *Assistant) complete(ctx context.Context, op, prompt string, media *Media) (string, error) {
	if a.completer == nil {
		return "", ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.completer.Complete(ctx, prompt, media)
	if err != nil {
		a.logger.WarnContext(ctx, "model call failed", log.FieldOperation, op, log.FieldError, err)
		return "", err
	}
	return reply, nil
}

// Categorize names a category for description, or DefaultCategory.
func (a *Assistant) Categorize(ctx context.Context, description string) string {
	prompt := fmt.Sprintf(`Você é um assistente financeiro. Categorize a seguinte transação financeira em uma única palavra ou frase curta em Português (Ex: Alimentação, Transporte, Moradia, Lazer, Saúde, Educação, Salário, Outros).

Descrição da transação: %q

Responda apenas com a categoria.`, description)

	reply, err := a.complete(ctx, "categorize", prompt, nil)
	if err != nil {
		return DefaultCategory
	}
	category := strings.Trim(strings.TrimSpace(reply), `"'.`)
	if category == "" || strings.ContainsAny(category, "\n{") || len([]rune(category)) > 40 {
		return DefaultCategory
	}
	return category
}

const draftFields = `Retorne APENAS um JSON com:
- description: string (resumo claro da transação)
- amount: number (valor numérico, ignore símbolos de moeda)
- type: 'DESPESA' ou 'RECEITA' (default DESPESA)
- category: string (categoria sugerida em Português)
- date: string (formato YYYY-MM-DD; se mencionado 'ontem' calcule, senão use hoje)
- isRecurring: boolean (se disser "todo mês", "assinatura", "fixo", "mensalmente")
- frequency: 'monthly' | 'weekly' | 'yearly' (se for recorrente)`

// ParseText extracts a transaction draft from natural language.
func (a *Assistant) ParseText(ctx context.Context, text string) Draft {
	prompt := fmt.Sprintf("Extraia dados de transação do seguinte texto em linguagem natural.\nHoje é: %s.\n\nTexto: %q\n\n%s",
		a.today(), text, draftFields)
	return a.parseDraft(ctx, prompt, nil)
}

// ParseMedia extracts a transaction draft from an audio recording or a
// receipt image.
func (a *Assistant) ParseMedia(ctx context.Context, media Media) Draft {
	what := "Ouça este áudio de uma pessoa descrevendo uma transação financeira."
	if strings.HasPrefix(media.MimeType, "image/") {
		what = "Leia esta imagem de um recibo ou comprovante de uma transação financeira."
	}
	prompt := fmt.Sprintf("%s\nHoje é: %s.\nExtraia os detalhes e %s", what, a.today(), lowerFirst(draftFields))
	return a.parseDraft(ctx, prompt, &media)
}

func (a *Assistant) parseDraft(ctx context.Context, prompt string, media *Media) Draft {
	empty := Draft{Type: model.Expense, Date: a.today()}

	reply, err := a.complete(ctx, "parse", prompt, media)
	if err != nil {
		return empty
	}
	raw, ok := extractJSON(reply, '{', '}')
	if !ok {
		return empty
	}

	var out struct {
		Description string          `json:"description"`
		Amount      json.RawMessage `json:"amount"`
		Type        string          `json:"type"`
		Category    string          `json:"category"`
		Date        string          `json:"date"`
		IsRecurring bool            `json:"isRecurring"`
		Frequency   string          `json:"frequency"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.logger.WarnContext(ctx, "malformed model reply", log.FieldOperation, "parse", log.FieldError, err)
		return empty
	}

	d := empty
	d.Description = strings.TrimSpace(out.Description)
	d.Category = strings.TrimSpace(out.Category)
	if len(out.Amount) > 0 {
		var amount money.Cents
		if err := amount.UnmarshalJSON(out.Amount); err == nil && amount >= 0 {
			d.Amount = amount
		}
	}
	if t, ok := model.ParseTransactionType(out.Type); ok {
		d.Type = t
	}
	if _, err := time.Parse(time.DateOnly, out.Date); err == nil {
		d.Date = out.Date
	}
	if out.IsRecurring {
		if f, ok := model.ParseFrequency(out.Frequency); ok {
			d.IsRecurring = true
			d.Frequency = f
		}
	}
	return d
}

// SuggestBudgets proposes monthly limits from past expenses, or nothing.
func (a *Assistant) SuggestBudgets(ctx context.Context, expenses []Expense) []Suggestion {
	data, _ := json.Marshal(expenses)
	prompt := fmt.Sprintf(`Analise o histórico de despesas abaixo e sugira um orçamento (limite de gastos) mensal ideal para cada categoria identificada.
Seja realista mas conservador para ajudar a economizar.

Dados: %s

Retorne APENAS um JSON array: [{ "category": "Nome", "limit": 1000 }]`, data)

	reply, err := a.complete(ctx, "suggest", prompt, nil)
	if err != nil {
		return []Suggestion{}
	}
	raw, ok := extractJSON(reply, '[', ']')
	if !ok {
		return []Suggestion{}
	}
	var out []Suggestion
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		a.logger.WarnContext(ctx, "malformed model reply", log.FieldOperation, "suggest", log.FieldError, err)
		return []Suggestion{}
	}

	valid := out[:0]
	for _, s := range out {
		s.Category = strings.TrimSpace(s.Category)
		if s.Category != "" && s.Limit >= 0 {
			valid = append(valid, s)
		}
	}
	return valid
}

// AnalyzeBehavior summarizes spending habits, or FallbackAnalysis.
func (a *Assistant) AnalyzeBehavior(ctx context.Context, expenses []Expense) Analysis {
	if len(expenses) > 50 {
		expenses = expenses[:50]
	}
	var total money.Cents
	for _, e := range expenses {
		total += e.Amount
	}
	data, _ := json.Marshal(struct {
		Transactions []Expense   `json:"transactions"`
		TotalSpent   money.Cents `json:"totalSpent"`
	}{expenses, total})

	prompt := fmt.Sprintf(`Analise este histórico de transações financeiras de um usuário. Identifique padrões de comportamento.

Dados: %s

Retorne APENAS um JSON com:
- persona: string (um arquétipo curto, ex: "Poupador Cauteloso", "Gastador Impulsivo", "Equilibrado")
- patternDescription: string (uma frase descrevendo o principal padrão observado)
- nextMonthProjection: number (estimativa de gastos totais para o próximo mês)
- tip: string (uma dica acionável e curta)`, data)

	reply, err := a.complete(ctx, "analyze", prompt, nil)
	if err != nil {
		return FallbackAnalysis()
	}
	raw, ok := extractJSON(reply, '{', '}')
	if !ok {
		return FallbackAnalysis()
	}
	var out Analysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out.Persona == "" {
		return FallbackAnalysis()
	}
	return out
}

func (a *Assistant) today() string {
	return a.now().Format(time.DateOnly)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
