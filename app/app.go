// File: app/app.go
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amitsahu629/bankingapp/config"
	"github.com/amitsahu629/bankingapp/db"
	"github.com/amitsahu629/bankingapp/handler"
	"github.com/amitsahu629/bankingapp/logger"
	"github.com/amitsahu629/bankingapp/repository"
	"github.com/amitsahu629/bankingapp/router"
	"github.com/amitsahu629/bankingapp/service"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations("file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---
	accountRepo := repository.NewAccountRepository(database)
	transactionRepo := repository.NewTransactionRepository(database)
	historyRepo := repository.NewBalanceHistoryRepository(database)

	accountService := service.NewAccountService(accountRepo, transactionRepo, historyRepo, redisClient)

	webhookNotifier := service.NewWebhookNotifier(
		config.AppConfig.Webhook.URL,
		config.AppConfig.Webhook.QueueSize,
		config.AppConfig.Webhook.MaxRetries,
	)
	notifiers := service.CompositeNotifier{accountService}
	if config.AppConfig.Webhook.URL != "" {
		webhookNotifier.Start()
		defer webhookNotifier.Stop()
		notifiers = append(notifiers, webhookNotifier)
	}

	transactionService := service.NewTransactionService(
		database,
		accountRepo,
		transactionRepo,
		historyRepo,
		notifiers,
		service.EngineConfig{
			MaxRetries:   config.AppConfig.Transaction.MaxRetries,
			RetryBackoff: config.AppConfig.RetryBackoff(),
		},
	)

	transactionHandler := handler.NewTransactionHandler(transactionService)
	accountHandler := handler.NewAccountHandler(accountService)

	// Background sweep for transactions stuck in PENDING.
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	reaper := service.NewReaper(database, transactionRepo, config.AppConfig.ReaperInterval(), config.AppConfig.PendingTimeout())
	reaper.Start(reaperCtx)

	r := router.NewRouter(transactionHandler, accountHandler)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	stopReaper()
	reaper.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
