package importer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
	"github.com/vidfeed/video-feed-import-go/internal/validation"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// errStopIteration signals that a seen item ended the loop early on a
// stop-if-seen feed. It is not an item failure.
var errStopIteration = errors.New("stop iteration")

// Run executes one import of one feed. It is single-use: construct,
// Execute once, discard.
//
// A run always terminates in the complete state, no matter how many
// items errored; failures become durable step records instead of
// propagating to the caller.
type Run struct {
	feed       *models.Feed
	feedImport *models.FeedImport
	iterator   scraper.Iterator

	feeds   repository.FeedRepository
	imports repository.FeedImportRepository
	videos  repository.VideoRepository
	index   *IdentifierIndex
	builder *Builder
	gate    *PublicationGate
	valid   *validation.Validator
}

// NewRun assembles a Run for the given persisted feed import. The
// iterator must be freshly opened and not yet loaded.
func NewRun(
	feed *models.Feed,
	feedImport *models.FeedImport,
	iterator scraper.Iterator,
	feeds repository.FeedRepository,
	imports repository.FeedImportRepository,
	videos repository.VideoRepository,
	index *IdentifierIndex,
	builder *Builder,
	gate *PublicationGate,
	valid *validation.Validator,
) *Run {
	return &Run{
		feed:       feed,
		feedImport: feedImport,
		iterator:   iterator,
		feeds:      feeds,
		imports:    imports,
		videos:     videos,
		index:      index,
		builder:    builder,
		gate:       gate,
		valid:      valid,
	}
}

// Execute drives the run to completion: load feed metadata, walk the
// items, then finalize publication state and mark the run complete.
func (r *Run) Execute(ctx context.Context) {
	log := logger.Log.With(
		zap.Int64("feed_id", r.feed.ID),
		zap.Int64("feed_import_id", r.feedImport.ID),
		zap.String("run_uuid", r.feedImport.UUID.String()),
	)

	if err := r.openIterator(ctx); err != nil {
		log.Error("feed fetch failed", zap.Error(err))
		r.recordStep(ctx, models.StepImportErrored, nil, traceOf(err))
	} else {
		r.processItems(ctx, log)
	}

	r.finalize(ctx, log)
}

func (r *Run) openIterator(ctx context.Context) error {
	if err := r.iterator.Load(ctx); err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	if err := r.updateFeedMetadata(ctx); err != nil {
		return fmt.Errorf("update feed metadata: %w", err)
	}
	return nil
}

// updateFeedMetadata caches the iterator's conditional-fetch tokens on
// the feed and, while the feed is flagged for it, refreshes its display
// metadata. The metadata refresh happens at most once per flag set.
func (r *Run) updateFeedMetadata(ctx context.Context) error {
	md := r.iterator.Metadata()
	save := false

	if md.ETag != "" && md.ETag != r.feed.ExternalETag {
		r.feed.ExternalETag = md.ETag
		save = true
	}
	if md.LastModified != nil {
		r.feed.ExternalLastModified = md.LastModified
		save = true
	}

	if r.feed.UpdateMetadataOnImport {
		r.feed.Name = md.Title
		if r.feed.Name == "" {
			r.feed.Name = r.feed.OriginalURL
		}
		r.feed.WebURL = md.Webpage
		r.feed.Description = md.Description
		if md.ThumbnailURL != "" {
			r.feed.ThumbnailURL = md.ThumbnailURL
		}
		r.feed.UpdateMetadataOnImport = false
		save = true
	}

	if !save {
		return nil
	}
	return r.feeds.UpdateFeed(ctx, r.feed)
}

func (r *Run) processItems(ctx context.Context, log *zap.Logger) {
	for {
		remote, err := r.iterator.Next(ctx)
		if errors.Is(err, scraper.ErrEndOfFeed) {
			return
		}
		if err != nil {
			// The sequence itself failed mid-stream; that ends the
			// loop, not just the item.
			log.Error("feed iteration failed", zap.Error(err))
			r.recordStep(ctx, models.StepImportErrored, nil, traceOf(err))
			return
		}

		err = r.processItemGuarded(ctx, remote)
		stop := errors.Is(err, errStopIteration)
		if err != nil && !stop {
			log.Warn("item import failed", zap.Error(err))
			r.recordStep(ctx, models.StepVideoErrored, nil, traceOf(err))
		}

		// Persist counters and timestamp after every item so progress
		// survives a crash mid-run.
		if err := r.imports.UpdateFeedImport(ctx, r.feedImport); err != nil {
			log.Error("failed to persist run progress", zap.Error(err))
		}

		if stop {
			return
		}
	}
}

// processItemGuarded isolates one item: any panic inside the item
// pipeline is converted into an error so the loop can keep going.
func (r *Run) processItemGuarded(ctx context.Context, remote scraper.RemoteVideo) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("item processing panicked: %v\n%s", rec, debug.Stack())
		}
	}()
	return r.processItem(ctx, remote)
}

func (r *Run) processItem(ctx context.Context, remote scraper.RemoteVideo) error {
	if err := remote.Load(ctx); err != nil {
		return fmt.Errorf("load remote video: %w", err)
	}

	seen, err := r.index.IsSeen(ctx, r.feed.ID, remote)
	if err != nil {
		return fmt.Errorf("check seen: %w", err)
	}
	if seen {
		r.recordStep(ctx, models.StepVideoSeen, nil, "")
		if r.feed.StopIfSeen {
			return errStopIteration
		}
		return nil
	}

	// Imported videos are never published directly; publication is
	// decided for the whole batch in the finalize phase.
	video, pending := r.builder.Build(ctx, remote, BuildOptions{
		Status:     models.VideoUnpublished,
		Feed:       r.feed,
		OwnerName:  r.feed.OwnerName,
		OwnerEmail: r.feed.OwnerEmail,
	})

	// A validation failure is recorded but does not stop the save.
	if err := r.valid.ValidateVideo(video); err != nil {
		r.recordStep(ctx, models.StepVideoInvalid, nil, traceOf(err))
	}

	if err := r.videos.CreateVideo(ctx, video); err != nil {
		return fmt.Errorf("persist video: %w", err)
	}

	if err := pending.Commit(ctx); err != nil {
		// No video row without its file attachments survives.
		if delErr := r.videos.DeleteVideo(ctx, video.ID); delErr != nil {
			logger.Log.Error("failed to delete video after attachment failure",
				zap.Int64("video_id", video.ID),
				zap.Error(delErr),
			)
		}
		return fmt.Errorf("attach video %d: %w", video.ID, err)
	}

	if err := r.index.MarkSeen(ctx, r.feed.ID, remote); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	r.recordStep(ctx, models.StepVideoImported, &video.ID, "")

	return nil
}

func (r *Run) finalize(ctx context.Context, log *zap.Logger) {
	if err := r.gate.Finalize(ctx, r.feedImport, r.feed.ModerateImportedVideos); err != nil {
		log.Error("publication finalize failed", zap.Error(err))
		r.recordStep(ctx, models.StepImportErrored, nil, traceOf(err))
	}

	r.feedImport.IsComplete = true
	if err := r.imports.UpdateFeedImport(ctx, r.feedImport); err != nil {
		log.Error("failed to mark run complete", zap.Error(err))
		return
	}

	log.Info("feed import complete",
		zap.Int("imported", r.feedImport.ImportCount),
		zap.Int("errors", r.feedImport.ErrorCount),
	)
}

// recordStep appends an immutable step to the run's log and updates the
// in-memory counters. Step persistence failures are logged; the run
// carries on with its in-memory tally.
func (r *Run) recordStep(ctx context.Context, stepType models.StepType, videoID *int64, traceback string) {
	r.feedImport.Tally(stepType)

	step := &models.FeedImportStep{
		FeedImportID: r.feedImport.ID,
		StepType:     stepType,
		VideoID:      videoID,
		Traceback:    traceback,
	}
	if err := r.imports.CreateStep(ctx, step); err != nil {
		logger.Log.Error("failed to record import step",
			zap.Int64("feed_import_id", r.feedImport.ID),
			zap.String("step_type", string(stepType)),
			zap.Error(err),
		)
	}
}

// ReconcileCounts compares a completed run's denormalized counters
// against its step log. It returns an error describing any drift. The
// counters are maintained incrementally, so this is a consistency check
// for tests and auditing, not part of the import path.
func ReconcileCounts(ctx context.Context, imports repository.FeedImportRepository, feedImport *models.FeedImport) error {
	counts, err := imports.CountStepsByType(ctx, feedImport.ID)
	if err != nil {
		return fmt.Errorf("count steps: %w", err)
	}

	wantErrors := counts[models.StepImportErrored] + counts[models.StepVideoErrored]
	wantImports := counts[models.StepVideoImported]

	if feedImport.ErrorCount != wantErrors || feedImport.ImportCount != wantImports {
		return fmt.Errorf(
			"counter drift on feed import %d: error_count=%d (steps say %d), import_count=%d (steps say %d)",
			feedImport.ID, feedImport.ErrorCount, wantErrors, feedImport.ImportCount, wantImports,
		)
	}

	return nil
}

func traceOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
