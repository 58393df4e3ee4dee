package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"family-finance/internal/ai"
	"family-finance/internal/amqp"
	"family-finance/internal/auth"
	"family-finance/internal/bot"
	"family-finance/internal/config"
	"family-finance/internal/log"
	"family-finance/internal/repository"
	"family-finance/internal/router"
	"family-finance/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.New(log.Config{}).Error("load config", log.FieldError, err)
		os.Exit(1)
	}

	logger := log.New(log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("shutdown complete", log.FieldOperation, log.OpShutdown)
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	db, err := repository.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	simulationRepo := repository.NewSimulationRepository(db)
	backupRepo := repository.NewBackupRepository(db)

	var completer ai.Completer
	if gemini, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model); err == nil {
		completer = gemini
		logger.Info("ai enabled", "model", cfg.AI.Model)
	} else if !errors.Is(err, ai.ErrUnavailable) {
		logger.Warn("ai disabled", log.FieldError, err)
	}
	assistant := ai.NewAssistant(completer, cfg.AI.Timeout, logger)

	userSvc := service.NewUserService(userRepo, auth.NewHasher(cfg.Auth.BcryptCost), auth.NewTokens(cfg.JWTSecret(), cfg.SessionTTL()))
	if created, err := userSvc.EnsureAdmin(ctx, cfg.Seed.AdminPassword); err != nil {
		return err
	} else if created {
		logger.Warn("seeded admin account, change its password", log.FieldOperation, log.OpStartup)
	}

	budgetSvc := service.NewBudgetService(budgetRepo, txRepo, userRepo, assistant, time.Now)
	notifySvc := service.NewNotificationService(notificationRepo, budgetRepo, txRepo, cfg.Budget.AlertThreshold, logger)
	txSvc := service.NewTransactionService(txRepo, userSvc, assistant, notifySvc)
	taskSvc := service.NewTaskService(taskRepo, userRepo)
	reminderSvc := service.NewReminderService(budgetSvc, taskRepo, txRepo)
	snapshotJob := service.NewSnapshotJob(budgetSvc, budgetRepo, cfg.Budget.CatchUpMonths, logger)

	if cfg.AMQP.URL != "" {
		publisher, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, logger)
		if err != nil {
			logger.Warn("budget alerts will not be published", log.FieldError, err)
		} else {
			defer publisher.Close()
			notifySvc.SetPublisher(publisher)
		}
	}

	var telegramBot *bot.Bot
	if cfg.Telegram.Token != "" {
		telegramBot, err = bot.New(cfg.Telegram.Token, userRepo, taskSvc, txSvc, reminderSvc, logger)
		if err != nil {
			return err
		}
		notifySvc.SetChatNotifier(telegramBot)
	}

	scheduler := service.NewSchedulerService(time.Local, logger)
	if err := scheduler.Every("budget-snapshot", cfg.Budget.SnapshotInterval, func() {
		runSnapshot(ctx, snapshotJob, logger)
	}); err != nil {
		return err
	}
	if telegramBot != nil {
		if err := scheduler.Daily("telegram-digest", cfg.Telegram.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if err := telegramBot.SendDailyDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("daily digest", log.FieldError, err)
			}
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	engine := router.SetupRouter(cfg, router.Services{
		Users:         userSvc,
		Budgets:       budgetSvc,
		Transactions:  txSvc,
		Reports:       service.NewReportService(txRepo, userSvc, logger),
		Goals:         service.NewGoalService(goalRepo, userSvc),
		Tasks:         taskSvc,
		Notifications: notifySvc,
		Simulations:   service.NewSimulationService(simulationRepo),
		Settings:      service.NewSettingsService(settingRepo, snapshotJob),
		Backup:        service.NewBackupService(backupRepo, logger),
		Translations:  service.NewTranslationService(settingRepo),
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// catch up on months missed while the process was down
		runSnapshot(gctx, snapshotJob, logger)
		return nil
	})
	g.Go(func() error {
		logger.Info("http server listening", "address", cfg.Server.Address, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info("shutting down http server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})
	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(gctx)
		})
	}

	return g.Wait()
}

func runSnapshot(ctx context.Context, job *service.SnapshotJob, logger *log.Logger) {
	if _, err := job.Run(ctx); err != nil {
		if errors.Is(err, service.ErrSnapshotRunning) {
			logger.Info("snapshot already running, skipped")
			return
		}
		if !errors.Is(err, context.Canceled) {
			logger.Error("snapshot run", log.FieldError, err)
		}
	}
}
