// Package service wires the import engine's collaborators together and
// exposes the operations the HTTP layer and the scheduler call.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/config"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/importer"
	"github.com/vidfeed/video-feed-import-go/internal/metrics"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
	"github.com/vidfeed/video-feed-import-go/internal/validation"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// ImportService runs feed imports end to end: open the remote feed,
// walk its items, and finalize publication.
type ImportService interface {
	// RunImport executes a full import for the feed and returns the
	// completed run record. Runs for the same feed are serialized
	// within this process; a second call blocks until the first
	// finishes.
	RunImport(ctx context.Context, feedID int64) (*models.FeedImport, error)
}

type importService struct {
	feeds       repository.FeedRepository
	imports     repository.FeedImportRepository
	videos      repository.VideoRepository
	identifiers repository.IdentifierRepository

	registry *scraper.Registry
	hooks    *importer.Hooks
	valid    *validation.Validator

	cfg config.ImporterConfig
	scr config.ScraperConfig

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewImportService creates an ImportService backed by the given
// repositories and feed source registry.
func NewImportService(
	feeds repository.FeedRepository,
	imports repository.FeedImportRepository,
	videos repository.VideoRepository,
	identifiers repository.IdentifierRepository,
	registry *scraper.Registry,
	hooks *importer.Hooks,
	valid *validation.Validator,
	cfg config.ImporterConfig,
	scr config.ScraperConfig,
) ImportService {
	return &importService{
		feeds:       feeds,
		imports:     imports,
		videos:      videos,
		identifiers: identifiers,
		registry:    registry,
		hooks:       hooks,
		valid:       valid,
		cfg:         cfg,
		scr:         scr,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// feedLock returns the per-feed mutex, creating it on first use. Locks
// are never removed; the map grows with the number of distinct feeds
// imported by this process.
func (s *importService) feedLock(feedID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[feedID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[feedID] = l
	}
	return l
}

func (s *importService) RunImport(ctx context.Context, feedID int64) (*models.FeedImport, error) {
	lock := s.feedLock(feedID)
	lock.Lock()
	defer lock.Unlock()

	feed, err := s.feeds.GetFeedByID(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("load feed %d: %w", feedID, err)
	}

	feedImport := models.NewFeedImport(feed.ID)
	if err := s.imports.CreateFeedImport(ctx, feedImport); err != nil {
		return nil, fmt.Errorf("create feed import: %w", err)
	}

	opts := scraper.OpenOptions{
		MaxResults:   s.cfg.MaxResults,
		APIKeys:      s.scr.APIKeys,
		ETag:         feed.ExternalETag,
		LastModified: feed.ExternalLastModified,
	}
	iterator, err := s.registry.Open(ctx, feed.OriginalURL, opts)
	if err != nil {
		// No source can serve this URL. Record the failure on the run
		// so the step log explains the empty import.
		return feedImport, s.failEarly(ctx, feedImport, err)
	}

	run := importer.NewRun(
		feed,
		feedImport,
		iterator,
		s.feeds,
		s.imports,
		s.videos,
		importer.NewIdentifierIndex(s.identifiers),
		importer.NewBuilder(s.videos, s.hooks),
		importer.NewPublicationGate(s.videos, s.hooks),
		s.valid,
	)

	feedLabel := fmt.Sprintf("%d", feed.ID)
	metrics.ImportRunsTotal.WithLabelValues(feedLabel).Inc()
	start := time.Now()
	run.Execute(ctx)
	metrics.ImportRunDuration.Observe(time.Since(start).Seconds())
	metrics.VideosImportedTotal.WithLabelValues(feedLabel).Add(float64(feedImport.ImportCount))
	metrics.ImportErrorsTotal.WithLabelValues(feedLabel).Add(float64(feedImport.ErrorCount))

	logger.Log.Info("import run finished",
		zap.Int64("feed_id", feed.ID),
		zap.Int64("feed_import_id", feedImport.ID),
		zap.Int("import_count", feedImport.ImportCount),
		zap.Int("error_count", feedImport.ErrorCount),
	)
	return feedImport, nil
}

// failEarly marks a run that could not even open its source: one
// errored step, then completion, mirroring a fetch-level failure.
func (s *importService) failEarly(ctx context.Context, feedImport *models.FeedImport, cause error) error {
	step := &models.FeedImportStep{
		FeedImportID: feedImport.ID,
		StepType:     models.StepImportErrored,
		Traceback:    cause.Error(),
	}
	if err := s.imports.CreateStep(ctx, step); err != nil {
		logger.Log.Error("record open failure", zap.Error(err))
	}
	feedImport.Tally(models.StepImportErrored)
	feedImport.IsComplete = true
	if err := s.imports.UpdateFeedImport(ctx, feedImport); err != nil {
		return fmt.Errorf("complete failed import: %w", err)
	}
	metrics.ImportErrorsTotal.WithLabelValues(fmt.Sprintf("%d", feedImport.FeedID)).Inc()
	return nil
}
