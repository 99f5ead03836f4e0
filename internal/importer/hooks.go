// Package importer implements the feed import engine: fingerprinting
// and dedupe of remote records, two-phase video construction, the
// import run state machine, and the end-of-run publication gate.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// BeforeBuildListener runs before a remote record is mapped into a
// Video. Listeners may mutate the record in place.
type BeforeBuildListener interface {
	BeforeBuild(ctx context.Context, remote scraper.RemoteVideo) error
}

// AfterAttachListener runs once a video's deferred attachment has
// completed, i.e. the row and its file variants exist.
type AfterAttachListener interface {
	AfterAttach(ctx context.Context, video *models.Video, remote scraper.RemoteVideo) error
}

// BeforePublishListener may narrow or replace the set of video IDs
// about to be bulk-published at the end of a run. Returning nil means
// no override.
type BeforePublishListener interface {
	BeforePublish(ctx context.Context, feedImport *models.FeedImport, candidates []int64) ([]int64, error)
}

// AfterPublishListener runs with the set of videos that were just
// published by a run.
type AfterPublishListener interface {
	AfterPublish(ctx context.Context, feedImport *models.FeedImport, published []*models.Video) error
}

// Hooks is a registry of import lifecycle listeners. Listeners are
// invoked synchronously in registration order. A failing listener never
// aborts the import: errors and panics are logged as warnings and the
// default behavior is used.
type Hooks struct {
	beforeBuild   []BeforeBuildListener
	afterAttach   []AfterAttachListener
	beforePublish []BeforePublishListener
	afterPublish  []AfterPublishListener
}

// NewHooks creates an empty Hooks registry.
func NewHooks() *Hooks {
	return &Hooks{}
}

func (h *Hooks) OnBeforeBuild(l BeforeBuildListener) {
	h.beforeBuild = append(h.beforeBuild, l)
}

func (h *Hooks) OnAfterAttach(l AfterAttachListener) {
	h.afterAttach = append(h.afterAttach, l)
}

func (h *Hooks) OnBeforePublish(l BeforePublishListener) {
	h.beforePublish = append(h.beforePublish, l)
}

func (h *Hooks) OnAfterPublish(l AfterPublishListener) {
	h.afterPublish = append(h.afterPublish, l)
}

func (h *Hooks) fireBeforeBuild(ctx context.Context, remote scraper.RemoteVideo) {
	for _, l := range h.beforeBuild {
		if err := capture(func() error { return l.BeforeBuild(ctx, remote) }); err != nil {
			logger.Log.Warn("before-build listener failed", zap.Error(err))
		}
	}
}

func (h *Hooks) fireAfterAttach(ctx context.Context, video *models.Video, remote scraper.RemoteVideo) {
	for _, l := range h.afterAttach {
		if err := capture(func() error { return l.AfterAttach(ctx, video, remote) }); err != nil {
			logger.Log.Warn("after-attach listener failed",
				zap.Int64("video_id", video.ID),
				zap.Error(err),
			)
		}
	}
}

// selectForPublication runs the before-publish listeners over the
// candidate set. Every listener is consulted and the LAST valid
// override wins; listeners that error, panic, or return nil are skipped
// with a warning. The ordering sensitivity between multiple overriding
// listeners mirrors the long-standing behavior of this pipeline and is
// deliberately left as is.
func (h *Hooks) selectForPublication(ctx context.Context, feedImport *models.FeedImport, candidates []int64) []int64 {
	selected := candidates
	for _, l := range h.beforePublish {
		var override []int64
		err := capture(func() error {
			var err error
			override, err = l.BeforePublish(ctx, feedImport, candidates)
			return err
		})
		if err != nil {
			logger.Log.Warn("before-publish listener failed",
				zap.Int64("feed_import_id", feedImport.ID),
				zap.Error(err),
			)
			continue
		}
		if override != nil {
			selected = override
		}
	}
	return selected
}

func (h *Hooks) fireAfterPublish(ctx context.Context, feedImport *models.FeedImport, published []*models.Video) {
	for _, l := range h.afterPublish {
		if err := capture(func() error { return l.AfterPublish(ctx, feedImport, published) }); err != nil {
			logger.Log.Warn("after-publish listener failed",
				zap.Int64("feed_import_id", feedImport.ID),
				zap.Error(err),
			)
		}
	}
}

// capture invokes fn, converting a panic into an error.
func capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return fn()
}
