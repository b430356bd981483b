package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"shopflow/internal/config"
	"shopflow/internal/consumer"
	"shopflow/internal/database"
	"shopflow/internal/handler"
	"shopflow/internal/job"
	"shopflow/internal/middleware"
	"shopflow/internal/model"
	"shopflow/internal/monitor"
	"shopflow/internal/repository"
	"shopflow/internal/service/payment"
	"shopflow/pkg/broker"
	"shopflow/pkg/log"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}

	if err := log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize logger")
	}

	config.WatchConfig(func(*config.Config) {
		log.Info("Configuration reloaded")
	})

	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	db := database.GetDB()

	paymentRepo := repository.NewPaymentRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	paymentService := payment.NewService(db, paymentRepo, outboxRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := broker.NewManager(broker.Config{
		URL:         cfg.Broker.URL,
		MaxAttempts: cfg.Broker.Producer.MaxAttempts,
		Delay:       cfg.Broker.Producer.Delay,
	})
	go func() {
		if err := manager.Connect(ctx); err != nil {
			log.WithError(err).Error("Broker unavailable, running in degraded mode")
		}
	}()
	defer manager.Close()

	// Consumes checkout messages; the relay drains the staged notifications.
	paymentConsumer := consumer.NewPaymentConsumer(manager, paymentService, cfg.Consumer)
	paymentConsumer.Start(ctx)

	relay := job.NewOutboxRelay(outboxRepo, manager, model.QueueNotification, cfg.Outbox)
	relay.Start(ctx)
	defer relay.Stop()

	router := setupRouter(paymentRepo, manager)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Payment.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"port": cfg.Payment.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting payment service")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down payment service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	log.Info("Payment service exited")
}

func setupRouter(payments repository.PaymentRepository, manager *broker.Manager) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(), middleware.Recovery(), middleware.CORS())

	paymentHandler := handler.NewPaymentHandler(payments)

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = err.Error()
		}
		c.JSON(status, gin.H{
			"database": dbStatus,
			"broker":   manager.State().String(),
		})
	})
	router.GET("/metrics", monitor.Handler())

	paymentGroup := router.Group("/payments")
	{
		paymentGroup.GET("", paymentHandler.List)
		paymentGroup.GET("/:id", paymentHandler.Get)
	}

	return router
}
