package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"lastseat/server/internal/api"
	"lastseat/server/internal/cache"
	"lastseat/server/internal/config"
	"lastseat/server/internal/db"
	"lastseat/server/internal/email"
	"lastseat/server/internal/logging"
	"lastseat/server/internal/services"
	"lastseat/server/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	logging.Init()
	logger := logging.Get()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(*runMode)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			logger.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			logger.Error("error disconnecting from Redis", zap.Error(err))
		}
	}()

	ctxInit, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()

	if err := db.EnsureIndexes(ctxInit, mongoDb); err != nil {
		logger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// Seed the first main_admin on a fresh deployment.
	adminService := services.NewAdminService(mongoDb, cfg)
	if err := adminService.Bootstrap(ctxInit); err != nil {
		logger.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	// Email sender: Redis-backed mock for test harnesses, SMTP otherwise,
	// optionally teeing every message to a log file.
	var primaryEmailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		logger.Info("MOCK_SERVICES enabled: using Redis email sender")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeSender(primaryEmailSender)
	if logEmailsPath := os.Getenv("LOG_EMAILS"); logEmailsPath != "" {
		fileSender, err := email.NewFileSender(logEmailsPath)
		if err != nil {
			logger.Warn("failed to initialize file email sender", zap.String("path", logEmailsPath), zap.Error(err))
		} else {
			compositeSender.AddSender(fileSender)
		}
	}
	finalEmailSender := email.Sender(compositeSender)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close() //nolint:errcheck

	taskProcessor := tasks.NewTaskProcessor(cfg, mongoDb, finalEmailSender)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs: the deployment tooling uses it for shutdown and
	// the test harness for mock email retrieval.
	serviceRouter := api.SetupServiceRouter(cfg, redisClient, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("service API listening", zap.String("port", cfg.ServiceApiPort))
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("service API ListenAndServe error", zap.Error(err))
		}
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server

	logger.Info("starting application", zap.String("mode", cfg.RunMode))

	apiMode := func() {
		mainApiRouter := api.SetupRouter(cfg, mongoDb, redisClient, taskClient)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("main API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("main API ListenAndServe error", zap.Error(err))
			}
		}()
	}

	bgMode := func() {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor)
		backgroundTaskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("background task server starting")
			if err := backgroundTaskSrv.Run(mux); err != nil {
				logger.Fatal("background task server error", zap.Error(err))
			}
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		logger.Fatal("invalid run mode", zap.String("mode", cfg.RunMode))
	}

	// Graceful shutdown on signal or service API request.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		logger.Info("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		logger.Error("service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			logger.Error("main API shutdown error", zap.Error(err))
		}
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	logger.Info("server gracefully stopped")
}
