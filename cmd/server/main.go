package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dealer-service/config"
	"dealer-service/internal/api"
	"dealer-service/internal/broker"
	"dealer-service/internal/mediastore"
	"dealer-service/internal/redisclient"
	"dealer-service/internal/service"
	"dealer-service/internal/store"
	"dealer-service/internal/util"
	"dealer-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	logger.Info("Starting dealer service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	tp, err := util.InitTracer("dealer-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to shutdown tracer", zap.Error(err))
			}
		}()
	}

	st, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer st.Close()

	cache, err := redisclient.NewClient(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Business.ListingCacheTTLSeconds)*time.Second,
	)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer cache.Close()

	blobs, err := mediastore.NewS3Store(context.Background(), cfg.Media)
	if err != nil {
		logger.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory)
	defer producer.Close()
	publisher := broker.NewEventPublisher(producer)

	vehicleService := service.NewVehicleService(st, cache, publisher)
	imageService := service.NewImageService(st, blobs, cache, publisher)
	saleService := service.NewSaleService(st, cache, publisher, cfg.Business.DefaultCommissionRate)

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory, cfg.Kafka.ConsumerGroup)
	reconcileWorker := worker.NewReconcileWorker(consumer, st)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	go func() {
		if err := reconcileWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Reconcile worker stopped", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	handler := api.NewHandler(
		vehicleService,
		imageService,
		saleService,
		[]byte(cfg.Auth.JWTSecret),
		time.Duration(cfg.Business.OperationTimeoutSeconds)*time.Second,
		time.Duration(cfg.Business.UploadTimeoutSeconds)*time.Second,
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	workerCancel()
	if err := reconcileWorker.Stop(); err != nil {
		logger.Warn("Failed to stop reconcile worker", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
