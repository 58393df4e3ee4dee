package model

// BackupUser is a User with its credential hashes, which the API never shows
// but a backup must carry to be restorable.
type BackupUser struct {
	User
	PasswordHash       string `json:"passwordHash"`
	SecurityAnswerHash string `json:"securityAnswerHash,omitempty"`
	TelegramChatID     *int64 `json:"telegramChatId,omitempty"`
}

// Dataset is the full content of the database, as exported and restored.
type Dataset struct {
	AppName          string            `json:"appName"`
	Version          int               `json:"version"`
	Families         []Family          `json:"families"`
	Users            []BackupUser      `json:"users"`
	Transactions     []Transaction     `json:"transactions"`
	Goals            []SavingsGoal     `json:"goals"`
	Budgets          []BudgetLimit     `json:"budgets"`
	BudgetHistory    []BudgetHistory   `json:"budgetHistory"`
	Tasks            []FamilyTask      `json:"tasks"`
	Events           []FamilyEvent     `json:"events"`
	SavedSimulations []SavedSimulation `json:"savedSimulations"`
	Config           []AppSetting      `json:"config"`
	Translations     []Translation     `json:"translations"`
}
