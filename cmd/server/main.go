package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/config"
	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/handler"
	"github.com/vidfeed/video-feed-import-go/internal/importer"
	"github.com/vidfeed/video-feed-import-go/internal/middleware"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
	"github.com/vidfeed/video-feed-import-go/internal/scraper/rss"
	"github.com/vidfeed/video-feed-import-go/internal/service"
	"github.com/vidfeed/video-feed-import-go/internal/validation"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConnections),
		MinConns:        int32(cfg.Database.MinConnections),
		MaxConnLifetime: cfg.Database.MaxLifetime,
		MaxConnIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close(pool)

	feedRepo := repository.NewFeedRepository(pool)
	importRepo := repository.NewFeedImportRepository(pool)
	videoRepo := repository.NewVideoRepository(pool)
	identifierRepo := repository.NewIdentifierRepository(pool)
	watchRepo := repository.NewWatchRepository(pool)

	registry := scraper.NewRegistry(
		rss.NewSource(&http.Client{Timeout: cfg.Scraper.FetchTimeout}),
	)

	hooks := importer.NewHooks()

	// Message publishing is optional; run without it when no broker is
	// configured.
	var publisher *service.MessagePublisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err = service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("message publisher unavailable, published videos will not be announced",
				zap.Error(err),
			)
		} else {
			hooks.OnAfterPublish(publisher)
			defer func() { _ = publisher.Close() }()
		}
	}

	importService := service.NewImportService(
		feedRepo,
		importRepo,
		videoRepo,
		identifierRepo,
		registry,
		hooks,
		validation.New(true),
		cfg.Importer,
		cfg.Scraper,
	)

	router := handler.NewRouter(handler.RouterDeps{
		Feeds:  handler.NewFeedHandler(feedRepo, importRepo, importService),
		Videos: handler.NewVideoHandler(videoRepo, watchRepo),
		Health: handler.NewHealthHandler(pool, publisher),
		Auth:   middleware.NewAPIKeyAuth(cfg.Server.APIKeys),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("failed to close server", zap.Error(err))
			}
			os.Exit(1)
		}

		logger.Log.Info("server stopped gracefully")
	}
}
