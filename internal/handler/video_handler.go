package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// VideoHandler handles video read, moderation and watch endpoints.
type VideoHandler struct {
	videos  repository.VideoRepository
	watches repository.WatchRepository
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videos repository.VideoRepository, watches repository.WatchRepository) *VideoHandler {
	return &VideoHandler{
		videos:  videos,
		watches: watches,
	}
}

// UpdateStatusRequest represents a moderation decision.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// List returns videos, optionally filtered by status.
func (h *VideoHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	status := models.VideoStatus(c.Query("status"))
	switch status {
	case "", models.VideoUnpublished, models.VideoNeedsModeration, models.VideoPublished, models.VideoHidden:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status", "message": "unknown status filter"})
		return
	}

	videos, err := h.videos.ListVideos(c.Request.Context(), status, limit, offset)
	if err != nil {
		logger.Log.Error("list videos", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos, "limit": limit, "offset": offset})
}

// ListByFeed returns one feed's videos.
func (h *VideoHandler) ListByFeed(c *gin.Context) {
	feedID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	videos, err := h.videos.ListVideosByFeed(c.Request.Context(), feedID, limit, offset)
	if err != nil {
		logger.Log.Error("list feed videos", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos, "limit": limit, "offset": offset})
}

// Get returns one video with its file variants and watch count, and
// records the view as a Watch.
func (h *VideoHandler) Get(c *gin.Context) {
	videoID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	video, err := h.videos.GetVideoByID(ctx, videoID)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		logger.Log.Error("get video", zap.Int64("video_id", videoID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	files, err := h.videos.ListVideoFiles(ctx, videoID)
	if err != nil {
		logger.Log.Error("list video files", zap.Int64("video_id", videoID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	watch := models.NewWatch(videoID, c.ClientIP(), c.Request.UserAgent())
	if err := h.watches.CreateWatch(ctx, watch); err != nil {
		// Watch tracking is best effort; the view itself still counts.
		logger.Log.Warn("record watch", zap.Int64("video_id", videoID), zap.Error(err))
	}

	count, err := h.watches.CountWatches(ctx, videoID)
	if err != nil {
		logger.Log.Warn("count watches", zap.Int64("video_id", videoID), zap.Error(err))
		count = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"video":       video,
		"files":       files,
		"watch_count": count,
	})
}

// UpdateStatus applies a moderation decision to one video.
func (h *VideoHandler) UpdateStatus(c *gin.Context) {
	videoID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	status := models.VideoStatus(req.Status)
	switch status {
	case models.VideoUnpublished, models.VideoNeedsModeration, models.VideoPublished, models.VideoHidden:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status", "message": "unknown status"})
		return
	}

	if err := h.videos.UpdateVideoStatus(c.Request.Context(), videoID, status); err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		logger.Log.Error("update video status", zap.Int64("video_id", videoID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": videoID, "status": status})
}

// Delete removes a video and its files. Step log rows keep their type
// but lose the video reference.
func (h *VideoHandler) Delete(c *gin.Context) {
	videoID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.videos.DeleteVideo(c.Request.Context(), videoID); err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
			return
		}
		logger.Log.Error("delete video", zap.Int64("video_id", videoID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}
