package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"family-finance/internal/ai"
	"family-finance/internal/auth"
	"family-finance/internal/config"
	"family-finance/internal/log"
	"family-finance/internal/model"
	"family-finance/internal/repository"
	"family-finance/internal/service"
)

const testCookie = "ff_session"

type testServer struct {
	engine *gin.Engine
	users  *repository.UserRepository
	hasher *auth.Hasher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := log.Discard()
	db, err := repository.OpenMemory(logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Auth:   config.AuthConfig{CookieName: testCookie, SessionHours: 1},
	}

	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	hasher := auth.NewHasher(4)
	assistant := ai.NewAssistant(nil, 0, logger)

	users := service.NewUserService(userRepo, hasher, auth.NewTokens("router-test-secret-0123", time.Hour))
	budgets := service.NewBudgetService(budgetRepo, txRepo, userRepo, assistant, time.Now)
	notify := service.NewNotificationService(repository.NewNotificationRepository(db), budgetRepo, txRepo, 80, logger)
	snapshot := service.NewSnapshotJob(budgets, budgetRepo, 12, logger)

	engine := SetupRouter(cfg, Services{
		Users:         users,
		Budgets:       budgets,
		Transactions:  service.NewTransactionService(txRepo, users, assistant, notify),
		Reports:       service.NewReportService(txRepo, users, logger),
		Goals:         service.NewGoalService(repository.NewGoalRepository(db), users),
		Tasks:         service.NewTaskService(repository.NewTaskRepository(db), userRepo),
		Notifications: notify,
		Simulations:   service.NewSimulationService(repository.NewSimulationRepository(db)),
		Settings:      service.NewSettingsService(settingRepo, snapshot),
		Backup:        service.NewBackupService(repository.NewBackupRepository(db), logger),
		Translations:  service.NewTranslationService(settingRepo),
	}, logger)

	return &testServer{engine: engine, users: userRepo, hasher: hasher}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "segredo1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body)
	}
	return s.login(t, username, "segredo1")
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response %s: %v", rec.Body, err)
	}
	return resp.Token
}

func (s *testServer) superAdmin(t *testing.T) string {
	t.Helper()
	hash, err := s.hasher.Hash("segredo1")
	if err != nil {
		t.Fatal(err)
	}
	u := &model.User{Username: "root", PasswordHash: hash, Name: "root", Role: model.RoleSuperAdmin, Status: model.StatusActive}
	if err := s.users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return s.login(t, "root", "segredo1")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/api/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestSessionCookie(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ana")

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "ana", "password": "segredo1"})
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			session = c
		}
	}
	if session == nil || !session.HttpOnly || session.Value == "" {
		t.Fatalf("session cookie = %+v", session)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	s.engine.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me with cookie = %d %s", me.Code, me.Body)
	}
	var user model.User
	if err := json.Unmarshal(me.Body.Bytes(), &user); err != nil || user.Username != "ana" || user.Role != model.RoleManager {
		t.Fatalf("me = %s", me.Body)
	}
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/auth/me", "/api/transactions", "/api/budget/limits", "/api/goals"} {
		if rec := s.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, rec.Code)
		}
	}
	if rec := s.do(t, http.MethodGet, "/api/auth/me", "not-a-token", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", rec.Code)
	}
	s.register(t, "ana")
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "ana", "password": "errada"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d", rec.Code)
	}
}

func TestBudgetLimitUpsert(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ana")

	for _, limit := range []float64{500, 700} {
		rec := s.do(t, http.MethodPost, "/api/budget/limits", token, gin.H{"category": "Alimentação", "limit": limit})
		if rec.Code != http.StatusOK {
			t.Fatalf("save limit: %d %s", rec.Code, rec.Body)
		}
	}

	rec := s.do(t, http.MethodGet, "/api/budget/limits", token, nil)
	var limits []model.BudgetLimit
	if err := json.Unmarshal(rec.Body.Bytes(), &limits); err != nil {
		t.Fatalf("limits %s: %v", rec.Body, err)
	}
	if len(limits) != 1 || limits[0].Limit != 70000 {
		t.Fatalf("limits = %+v", limits)
	}

	if rec := s.do(t, http.MethodPost, "/api/budget/limits", token, gin.H{"category": "", "limit": 10}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank category = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/budget/limits", token, gin.H{"category": "Alimentação"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing limit = %d %s", rec.Code, rec.Body)
	}
	rec = s.do(t, http.MethodGet, "/api/budget/limits", token, nil)
	limits = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &limits); err != nil {
		t.Fatal(err)
	}
	if len(limits) != 1 || limits[0].Limit != 70000 {
		t.Fatalf("limit changed by rejected request: %+v", limits)
	}
}

func TestOtherUsersResourcesAreNotFound(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "ana")
	bia := s.register(t, "bia")

	rec := s.do(t, http.MethodPost, "/api/transactions", ana, gin.H{
		"description": "Mercado", "amount": 42.5, "date": "2024-03-01", "category": "Alimentação", "type": "EXPENSE",
	})
	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		t.Fatalf("create transaction: %d %s", rec.Code, rec.Body)
	}
	var tx model.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatal(err)
	}

	update := gin.H{"description": "x", "amount": 1, "date": "2024-03-01", "category": "x", "type": "EXPENSE"}
	if rec := s.do(t, http.MethodPut, "/api/transactions/"+tx.ID, bia, update); rec.Code != http.StatusNotFound {
		t.Errorf("update by another family = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, bia, nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete by another family = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/goals", ana, gin.H{"name": "Viagem", "targetAmount": 1000})
	var goal model.SavingsGoal
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil || goal.ID == "" {
		t.Fatalf("create goal: %d %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodGet, "/api/goals/"+goal.ID, bia, nil); rec.Code != http.StatusNotFound {
		t.Errorf("goal of another family = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/goals/"+goal.ID, ana, nil); rec.Code != http.StatusOK {
		t.Errorf("own goal = %d", rec.Code)
	}
}

func TestSuperAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	manager := s.register(t, "ana")
	root := s.superAdmin(t)

	if rec := s.do(t, http.MethodPost, "/api/settings/run-snapshot", manager, nil); rec.Code != http.StatusForbidden {
		t.Errorf("run-snapshot as manager = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/settings/backup", manager, nil); rec.Code != http.StatusForbidden {
		t.Errorf("backup as manager = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/settings/run-snapshot", root, nil); rec.Code != http.StatusOK {
		t.Errorf("run-snapshot as super admin = %d %s", rec.Code, rec.Body)
	}

	if rec := s.do(t, http.MethodPost, "/api/settings/restore", root, "[1, 2]"); rec.Code != http.StatusBadRequest {
		t.Errorf("restore with array = %d", rec.Code)
	}

	backup := s.do(t, http.MethodGet, "/api/settings/backup", root, nil)
	if backup.Code != http.StatusOK {
		t.Fatalf("backup = %d %s", backup.Code, backup.Body)
	}
	var ds model.Dataset
	if err := json.Unmarshal(backup.Body.Bytes(), &ds); err != nil || len(ds.Users) != 2 {
		t.Fatalf("backup body: %v (%d users)", err, len(ds.Users))
	}
	if rec := s.do(t, http.MethodPost, "/api/settings/restore", root, backup.Body.String()); rec.Code != http.StatusOK {
		t.Fatalf("restore = %d %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodGet, "/api/auth/me", manager, nil); rec.Code != http.StatusOK {
		t.Errorf("session after restore = %d", rec.Code)
	}
}

func TestTranslationEditorRole(t *testing.T) {
	s := newTestServer(t)
	manager := s.register(t, "ana")
	root := s.superAdmin(t)

	entry := gin.H{"language": "pt", "key": "menu.home", "value": "Início"}
	if rec := s.do(t, http.MethodPost, "/api/translations", manager, entry); rec.Code != http.StatusForbidden {
		t.Errorf("upsert as manager = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/translations", root, entry); rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
		t.Fatalf("upsert as super admin = %d %s", rec.Code, rec.Body)
	}

	rec := s.do(t, http.MethodGet, "/api/translations/language/pt", "", nil)
	var pt map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &pt); err != nil || pt["menu.home"] != "Início" {
		t.Fatalf("public translations = %s", rec.Body)
	}
}
