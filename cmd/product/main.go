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
	redisv9 "github.com/redis/go-redis/v9"

	"shopflow/internal/config"
	"shopflow/internal/database"
	"shopflow/internal/handler"
	"shopflow/internal/job"
	"shopflow/internal/middleware"
	"shopflow/internal/model"
	"shopflow/internal/monitor"
	"shopflow/internal/repository"
	"shopflow/internal/service/checkout"
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

	rdb := redisv9.NewClient(&redisv9.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer rdb.Close()

	productRepo := repository.NewCachedProductRepository(
		repository.NewProductRepository(db), rdb, cfg.Redis.CacheTTL)
	userRepo := repository.NewUserRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	checkoutService := checkout.NewService(db, productRepo, outboxRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broker connection failure leaves the service in degraded mode:
	// HTTP keeps serving, checkouts queue up in the outbox table.
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

	relay := job.NewOutboxRelay(outboxRepo, manager, model.QueuePayment, cfg.Outbox)
	relay.Start(ctx)
	defer relay.Stop()

	router := setupRouter(productRepo, userRepo, checkoutService, manager)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Product.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"port": cfg.Product.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting product service")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down product service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	log.Info("Product service exited")
}

func setupRouter(
	products repository.ProductRepository,
	users repository.UserRepository,
	checkoutService checkout.Service,
	manager *broker.Manager,
) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(), middleware.Recovery(), middleware.CORS())

	productHandler := handler.NewProductHandler(products, checkoutService)
	userHandler := handler.NewUserHandler(users)

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

	productGroup := router.Group("/products")
	{
		productGroup.GET("", productHandler.List)
		productGroup.GET("/:id", productHandler.Get)
		productGroup.POST("", productHandler.Create)
		productGroup.PUT("/:id", productHandler.Update)
		productGroup.DELETE("/:id", productHandler.Delete)
		productGroup.POST("/check-out", productHandler.Checkout)
	}

	userGroup := router.Group("/users")
	{
		userGroup.GET("", userHandler.List)
		userGroup.GET("/:id", userHandler.Get)
		userGroup.POST("", userHandler.Create)
		userGroup.PUT("/:id", userHandler.Update)
		userGroup.DELETE("/:id", userHandler.Delete)
	}

	return router
}
