// The importer daemon runs scheduled imports for every feed with
// automatic imports enabled. It shares its database with the API
// server and can run alongside it or on its own.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/config"
	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/importer"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	registry := scraper.NewRegistry(
		rss.NewSource(&http.Client{Timeout: cfg.Scraper.FetchTimeout}),
	)

	hooks := importer.NewHooks()
	if cfg.RabbitMQ.Host != "" {
		publisher, err := service.NewMessagePublisher(&cfg.RabbitMQ)
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

	scheduler := service.NewScheduler(feedRepo, importService, cfg.Importer.ScanInterval)

	go func() {
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
		sig := <-shutdown
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	scheduler.Start(ctx)
}
