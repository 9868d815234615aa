package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/greenlot/menu-order-service/config"
	"github.com/greenlot/menu-order-service/internal/metrics"
	"github.com/greenlot/menu-order-service/internal/platform/broker"
	"github.com/greenlot/menu-order-service/internal/platform/cache"
	"github.com/greenlot/menu-order-service/internal/platform/logger"
	"github.com/greenlot/menu-order-service/internal/platform/postgres"
	"github.com/greenlot/menu-order-service/internal/platform/search"

	"github.com/greenlot/menu-order-service/internal/auth"
	authH "github.com/greenlot/menu-order-service/internal/auth/handler"

	invH "github.com/greenlot/menu-order-service/internal/inventory/handler"
	invListenerPkg "github.com/greenlot/menu-order-service/internal/inventory/listener"
	invRepoPkg "github.com/greenlot/menu-order-service/internal/inventory/repository"
	invUCPkg "github.com/greenlot/menu-order-service/internal/inventory/usecase"

	menuH "github.com/greenlot/menu-order-service/internal/menu/handler"
	menuRepoPkg "github.com/greenlot/menu-order-service/internal/menu/repository"
	menuUCPkg "github.com/greenlot/menu-order-service/internal/menu/usecase"

	orderH "github.com/greenlot/menu-order-service/internal/order/handler"
	orderRepoPkg "github.com/greenlot/menu-order-service/internal/order/repository"

	prodH "github.com/greenlot/menu-order-service/internal/product/handler"
	prodRepoPkg "github.com/greenlot/menu-order-service/internal/product/repository"
	prodUCPkg "github.com/greenlot/menu-order-service/internal/product/usecase"

	resH "github.com/greenlot/menu-order-service/internal/reservation/handler"
	resRepoPkg "github.com/greenlot/menu-order-service/internal/reservation/repository"
	"github.com/greenlot/menu-order-service/internal/reservation/sweeper"
	resUCPkg "github.com/greenlot/menu-order-service/internal/reservation/usecase"
)

const serviceName = "menu-order-service"

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	resRepo := resRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	menuRepo := menuRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.OrdersTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()

	kafkaProducer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.OrdersTopic,
	})
	defer kafkaProducer.Close()
	appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.OrdersTopic))

	// 5.8 Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch (search features limited)", zap.Error(err))
		esClient = nil
	} else {
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// A nil *search.Client must not be wrapped into a non-nil interface.
	var orderIndexer resUCPkg.SearchIndexer
	if esClient != nil {
		orderIndexer = esClient
	}

	// 6. Initialize UseCases
	resUC := resUCPkg.NewReservationUseCase(resRepo, kafkaProducer, orderIndexer, cfg.Reservation, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, redisClient, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, redisClient, esClient, appLogger)
	menuUC := menuUCPkg.NewMenuUseCase(menuRepo, appLogger)

	authClient := auth.NewClient(&cfg.Auth, appLogger)
	refreshManager := auth.NewRefreshManager(cfg.Auth.RefreshMinInterval, appLogger)

	// 6.5 Start background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invListener := invListenerPkg.NewInventoryListener(kafkaConsumer, invUC, appLogger)
	go invListener.Start(ctx)

	expirySweeper := sweeper.NewSweeper(resUC, cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatchSize, appLogger)
	go expirySweeper.Start(ctx)

	// 7. Initialize Handlers
	resHandler := resH.NewReservationHandler(resUC, appLogger)
	invHandler := invH.NewInventoryHandler(invUC, appLogger)
	prodHandler := prodH.NewProductHandler(prodUC, appLogger)
	menuHandler := menuH.NewMenuHandler(menuUC, appLogger)
	orderHandler := orderH.NewOrderHandler(orderRepo, appLogger)
	authHandler := authH.NewAuthHandler(authClient, refreshManager, appLogger)

	// 8. Start HTTP Server
	if cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.PrometheusMiddleware(serviceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	resHandler.RegisterRoutes(v1)
	invHandler.RegisterRoutes(v1)
	prodHandler.RegisterRoutes(v1)
	menuHandler.RegisterRoutes(v1)
	orderHandler.RegisterRoutes(v1)
	authHandler.RegisterRoutes(v1)

	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
