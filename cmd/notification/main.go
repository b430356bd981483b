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
	"shopflow/internal/handler"
	"shopflow/internal/middleware"
	"shopflow/internal/monitor"
	"shopflow/internal/service/notification"
	"shopflow/internal/ws"
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

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	hub := ws.NewHub()
	notificationService := notification.NewService(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := broker.NewManager(broker.Config{
		URL:         cfg.Broker.URL,
		MaxAttempts: cfg.Broker.Consumer.MaxAttempts,
		Delay:       cfg.Broker.Consumer.Delay,
	})
	go func() {
		if err := manager.Connect(ctx); err != nil {
			log.WithError(err).Error("Broker unavailable, running in degraded mode")
		}
	}()
	defer manager.Close()

	notificationConsumer := consumer.NewNotificationConsumer(manager, notificationService, cfg.Consumer)
	notificationConsumer.Start(ctx)

	router := setupRouter(hub, notificationService, manager)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Notification.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"port": cfg.Notification.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting notification service")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	log.Info("Notification service exited")
}

func setupRouter(hub *ws.Hub, svc notification.Service, manager *broker.Manager) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(), middleware.Recovery(), middleware.CORS())

	notificationHandler := handler.NewNotificationHandler(svc)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"broker":  manager.State().String(),
			"clients": hub.Count(),
		})
	})
	router.GET("/metrics", monitor.Handler())

	router.GET("/ws", ws.ServeWS(hub))
	router.GET("/test-notification", notificationHandler.Test)

	return router
}
