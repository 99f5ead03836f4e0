package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
)

// BuildOptions controls how a remote record is mapped into a Video.
type BuildOptions struct {
	// Status defaults to needs-moderation when empty.
	Status models.VideoStatus
	// Feed is the owning feed; nil for manually created videos.
	Feed       *models.Feed
	OwnerName  string
	OwnerEmail string
}

// Builder maps remote video records into Video entities using a
// two-phase construction: Build produces the row value plus a
// PendingAttachment that must be committed only after the row has been
// durably persisted.
type Builder struct {
	videos repository.VideoRepository
	hooks  *Hooks
	now    func() time.Time
}

// NewBuilder creates a Builder. A nil hooks registry disables all
// listeners.
func NewBuilder(videos repository.VideoRepository, hooks *Hooks) *Builder {
	if hooks == nil {
		hooks = NewHooks()
	}
	return &Builder{
		videos: videos,
		hooks:  hooks,
		now:    time.Now,
	}
}

// Build maps the remote record into a Video. The before-build hook
// fires first and may mutate the record. The returned video is not
// persisted; once it is, the caller must invoke Commit on the returned
// attachment to create its file variants.
func (b *Builder) Build(ctx context.Context, remote scraper.RemoteVideo, opts BuildOptions) (*models.Video, *PendingAttachment) {
	b.hooks.fireBeforeBuild(ctx, remote)

	status := opts.Status
	if status == "" {
		status = models.VideoNeedsModeration
	}

	now := b.now()
	video := &models.Video{
		OriginalURL:          remote.URL(),
		WebURL:               remote.Link(),
		EmbedCode:            remote.EmbedCode(),
		FlashEnclosureURL:    remote.FlashEnclosureURL(),
		Name:                 remote.Title(),
		Description:          remote.Description(),
		GUID:                 remote.GUID(),
		OwnerName:            opts.OwnerName,
		OwnerEmail:           opts.OwnerEmail,
		ExternalUserUsername: remote.User(),
		ExternalUserURL:      remote.UserURL(),
		ExternalThumbnailURL: remote.ThumbnailURL(),
		ExternalPublishedAt:  remote.PublishDatetime(),
		Status:               status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if opts.Feed != nil {
		feedID := opts.Feed.ID
		video.FeedID = &feedID
	}
	if status == models.VideoPublished {
		publishedAt := now
		video.PublishedAt = &publishedAt
	}

	return video, &PendingAttachment{
		builder: b,
		video:   video,
		remote:  remote,
	}
}

// PendingAttachment is the deferred second phase of video construction.
type PendingAttachment struct {
	builder   *Builder
	video     *models.Video
	remote    scraper.RemoteVideo
	committed bool
}

// Commit creates one VideoFile per non-expiring file variant of the
// remote record and fires the after-attach hook. Must be called only
// after the video row has been persisted. Unlike the lifecycle hooks,
// file creation errors are NOT swallowed: the caller is expected to
// delete the orphaned video row and surface the failure.
func (pa *PendingAttachment) Commit(ctx context.Context) error {
	if pa.committed {
		return fmt.Errorf("attachment already committed for video %d", pa.video.ID)
	}
	if pa.video.ID == 0 {
		return fmt.Errorf("attachment committed before video was persisted")
	}

	for _, remoteFile := range pa.remote.Files() {
		if remoteFile.Expires != nil {
			continue
		}
		file := &models.VideoFile{
			VideoID:  pa.video.ID,
			URL:      remoteFile.URL,
			Length:   remoteFile.Length,
			MimeType: remoteFile.MimeType,
		}
		if err := pa.builder.videos.CreateVideoFile(ctx, file); err != nil {
			return fmt.Errorf("create video file: %w", err)
		}
	}

	pa.committed = true
	pa.builder.hooks.fireAfterAttach(ctx, pa.video, pa.remote)

	return nil
}
