package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// PublicationGate performs the end-of-run bulk transition of a run's
// videos into their final publication state.
type PublicationGate struct {
	videos repository.VideoRepository
	hooks  *Hooks
	now    func() time.Time
}

// NewPublicationGate creates a PublicationGate.
func NewPublicationGate(videos repository.VideoRepository, hooks *Hooks) *PublicationGate {
	if hooks == nil {
		hooks = NewHooks()
	}
	return &PublicationGate{
		videos: videos,
		hooks:  hooks,
		now:    time.Now,
	}
}

// Finalize runs the publication phase for a completed item loop.
//
// When the feed does not moderate imported videos, the run's still
// unpublished videos are offered to the before-publish listeners (which
// may narrow the set) and then bulk-published. Afterwards, and in every
// case, whatever the run imported that is still unpublished moves to
// needs-moderation.
func (g *PublicationGate) Finalize(ctx context.Context, feedImport *models.FeedImport, moderate bool) error {
	if !moderate {
		if err := g.publish(ctx, feedImport); err != nil {
			return err
		}
	}

	moved, err := g.videos.TransitionImportVideos(ctx, feedImport.ID,
		models.VideoUnpublished, models.VideoNeedsModeration)
	if err != nil {
		return fmt.Errorf("move unpublished videos to moderation: %w", err)
	}
	if moved > 0 {
		logger.Log.Info("videos held for moderation",
			zap.Int64("feed_import_id", feedImport.ID),
			zap.Int64("count", moved),
		)
	}

	return nil
}

func (g *PublicationGate) publish(ctx context.Context, feedImport *models.FeedImport) error {
	candidates, err := g.videos.ListImportVideosByStatus(ctx, feedImport.ID, models.VideoUnpublished)
	if err != nil {
		return fmt.Errorf("gather publish candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	candidateIDs := make([]int64, 0, len(candidates))
	for _, video := range candidates {
		candidateIDs = append(candidateIDs, video.ID)
	}

	selected := g.hooks.selectForPublication(ctx, feedImport, candidateIDs)

	published, err := g.videos.PublishVideos(ctx, selected, g.now())
	if err != nil {
		return fmt.Errorf("publish videos: %w", err)
	}
	logger.Log.Info("videos published",
		zap.Int64("feed_import_id", feedImport.ID),
		zap.Int64("count", published),
	)

	publishedVideos, err := g.videos.ListImportVideosByStatus(ctx, feedImport.ID, models.VideoPublished)
	if err != nil {
		// The publish itself succeeded; only the notification payload
		// is missing.
		logger.Log.Warn("failed to gather published videos for after-publish hook",
			zap.Int64("feed_import_id", feedImport.ID),
			zap.Error(err),
		)
		return nil
	}

	g.hooks.fireAfterPublish(ctx, feedImport, publishedVideos)

	return nil
}
