package amqp

import (
	"encoding/json"
	"time"

	"family-finance/internal/money"
)

// BudgetAlertMessage announces that a user's spending in a category crossed
// the warning threshold or the limit itself.
type BudgetAlertMessage struct {
	Kind       string      `json:"kind"`
	UserID     string      `json:"userId"`
	Category   string      `json:"category"`
	Month      string      `json:"month"`
	Limit      money.Cents `json:"limit"`
	Spent      money.Cents `json:"spent"`
	Percentage float64     `json:"percentage"`
	Timestamp  time.Time   `json:"timestamp"`
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
