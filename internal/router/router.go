package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-finance/internal/config"
	"family-finance/internal/handler"
	"family-finance/internal/log"
	"family-finance/internal/middleware"
	"family-finance/internal/model"
	"family-finance/internal/service"
)

// Services are the dependencies the HTTP layer needs.
type Services struct {
	Users         *service.UserService
	Budgets       *service.BudgetService
	Transactions  *service.TransactionService
	Reports       *service.ReportService
	Goals         *service.GoalService
	Tasks         *service.TaskService
	Notifications *service.NotificationService
	Simulations   *service.SimulationService
	Settings      *service.SettingsService
	Backup        *service.BackupService
	Translations  *service.TranslationService
}

// SetupRouter builds the gin engine with every /api route.
func SetupRouter(cfg *config.Config, svc Services, logger *log.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(log.GinMiddleware(logger), gin.Recovery())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(svc.Users, handler.SessionCookie{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.SecureCookie,
		TTL:    cfg.SessionTTL(),
	})
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/security-question", authHandler.SecurityQuestion)
	api.POST("/auth/recover", authHandler.Recover)

	// translations are needed on the login screen
	translationHandler := handler.NewTranslationHandler(svc.Translations)
	api.GET("/translations/language/:lang", translationHandler.Language)
	api.GET("/translations/languages", translationHandler.Languages)

	protected := api.Group("")
	protected.Use(middleware.Auth(svc.Users, cfg.Auth.CookieName))

	superAdmin := middleware.RequireRole(model.RoleSuperAdmin)
	editors := middleware.RequireRole(model.RoleSuperAdmin, model.RoleTranslator)

	protected.GET("/auth/me", authHandler.Me)

	userHandler := handler.NewUserHandler(svc.Users, svc.Notifications, svc.Simulations)
	users := protected.Group("/users")
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)
	users.POST("/:id/telegram-code", userHandler.TelegramCode)
	users.GET("/:id/notifications", userHandler.Notifications)
	users.POST("/:id/notifications/:nid/read", userHandler.MarkNotificationRead)
	users.POST("/:id/simulations/preview", userHandler.PreviewSimulation)
	users.GET("/:id/simulations", userHandler.ListSimulations)
	users.POST("/:id/simulations", userHandler.CreateSimulation)
	users.GET("/:id/simulations/:sid/schedule", userHandler.SimulationSchedule)
	users.DELETE("/:id/simulations/:sid", userHandler.DeleteSimulation)

	familyHandler := handler.NewFamilyHandler(svc.Users, svc.Tasks)
	family := protected.Group("/family")
	family.GET("", familyHandler.Get)
	family.GET("/tasks", familyHandler.ListTasks)
	family.POST("/tasks", familyHandler.CreateTask)
	family.PUT("/tasks/:id", familyHandler.UpdateTask)
	family.POST("/tasks/:id/toggle", familyHandler.ToggleTask)
	family.DELETE("/tasks/:id", familyHandler.DeleteTask)
	family.GET("/events", familyHandler.ListEvents)
	family.POST("/events", familyHandler.CreateEvent)
	family.DELETE("/events/:id", familyHandler.DeleteEvent)

	txHandler := handler.NewTransactionHandler(svc.Transactions, svc.Reports)
	txs := protected.Group("/transactions")
	txs.GET("", txHandler.List)
	txs.POST("", txHandler.Create)
	txs.PUT("/:id", txHandler.Update)
	txs.DELETE("/:id", txHandler.Delete)
	txs.POST("/categorize", txHandler.Categorize)
	txs.POST("/parse", txHandler.Parse)
	txs.POST("/analyze", txHandler.Analyze)
	txs.GET("/export/csv", txHandler.ExportCSV)
	txs.GET("/export/xlsx", txHandler.ExportXLSX)
	txs.GET("/template", txHandler.Template)
	txs.POST("/import", txHandler.Import)

	goalHandler := handler.NewGoalHandler(svc.Goals)
	goals := protected.Group("/goals")
	goals.GET("", goalHandler.List)
	goals.POST("", goalHandler.Create)
	goals.GET("/:id", goalHandler.Get)
	goals.PUT("/:id", goalHandler.Update)
	goals.DELETE("/:id", goalHandler.Delete)
	goals.POST("/:id/contributions", goalHandler.AddContribution)
	goals.PUT("/:id/contributions/:cid", goalHandler.UpdateContribution)
	goals.DELETE("/:id/contributions/:cid", goalHandler.DeleteContribution)

	budgetHandler := handler.NewBudgetHandler(svc.Budgets, svc.Users)
	budget := protected.Group("/budget")
	budget.GET("/limits", budgetHandler.ListLimits)
	budget.POST("/limits", budgetHandler.SaveLimit)
	budget.DELETE("/limits/:category", budgetHandler.DeleteLimit)
	budget.GET("/summary", budgetHandler.Summary)
	budget.GET("/history", budgetHandler.History)
	budget.POST("/history/save", budgetHandler.SaveHistory)
	budget.POST("/suggest", budgetHandler.Suggest)

	settingsHandler := handler.NewSettingsHandler(svc.Settings, svc.Backup)
	settings := protected.Group("/settings")
	settings.GET("", settingsHandler.List)
	settings.POST("", superAdmin, settingsHandler.Upsert)
	settings.POST("/run-snapshot", superAdmin, settingsHandler.RunSnapshot)
	settings.GET("/backup", superAdmin, settingsHandler.Backup)
	settings.POST("/restore", superAdmin, settingsHandler.Restore)

	translations := protected.Group("/translations", editors)
	translations.GET("/editor/all", translationHandler.All)
	translations.POST("", translationHandler.Upsert)
	translations.POST("/language/add", translationHandler.AddLanguage)

	return r
}
