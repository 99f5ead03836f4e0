// Package handler provides HTTP request handlers for the application.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidfeed/video-feed-import-go/internal/db"
	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/db/repository"
	"github.com/vidfeed/video-feed-import-go/internal/service"
	"github.com/vidfeed/video-feed-import-go/pkg/logger"
)

// FeedHandler handles feed CRUD and import-run endpoints.
type FeedHandler struct {
	feeds    repository.FeedRepository
	imports  repository.FeedImportRepository
	importer service.ImportService
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feeds repository.FeedRepository, imports repository.FeedImportRepository, importer service.ImportService) *FeedHandler {
	return &FeedHandler{
		feeds:    feeds,
		imports:  imports,
		importer: importer,
	}
}

// CreateFeedRequest represents the request to register a feed.
type CreateFeedRequest struct {
	OriginalURL            string `json:"original_url" binding:"required"`
	Name                   string `json:"name"`
	ModerateImportedVideos bool   `json:"moderate_imported_videos"`
	EnableAutomaticImports *bool  `json:"enable_automatic_imports"`
	StopIfSeen             *bool  `json:"stop_if_seen"`
	UpdateMetadataOnImport *bool  `json:"update_metadata_on_import"`
	OwnerName              string `json:"owner_name"`
	OwnerEmail             string `json:"owner_email"`
}

// UpdateFeedRequest represents the request to update feed settings.
type UpdateFeedRequest struct {
	Name                   *string `json:"name"`
	Description            *string `json:"description"`
	ModerateImportedVideos *bool   `json:"moderate_imported_videos"`
	EnableAutomaticImports *bool   `json:"enable_automatic_imports"`
	StopIfSeen             *bool   `json:"stop_if_seen"`
	UpdateMetadataOnImport *bool   `json:"update_metadata_on_import"`
	OwnerName              *string `json:"owner_name"`
	OwnerEmail             *string `json:"owner_email"`
}

// Create registers a new feed. The feed's display metadata is filled in
// on its first import.
func (h *FeedHandler) Create(c *gin.Context) {
	var req CreateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	feed := models.NewFeed(req.OriginalURL)
	feed.Name = req.Name
	feed.ModerateImportedVideos = req.ModerateImportedVideos
	feed.OwnerName = req.OwnerName
	feed.OwnerEmail = req.OwnerEmail
	if req.EnableAutomaticImports != nil {
		feed.EnableAutomaticImports = *req.EnableAutomaticImports
	}
	if req.StopIfSeen != nil {
		feed.StopIfSeen = *req.StopIfSeen
	}
	if req.UpdateMetadataOnImport != nil {
		feed.UpdateMetadataOnImport = *req.UpdateMetadataOnImport
	}

	if err := h.feeds.CreateFeed(c.Request.Context(), feed); err != nil {
		if db.IsDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": "a feed with this URL already exists"})
			return
		}
		logger.Log.Error("create feed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, feed)
}

// Get returns one feed.
func (h *FeedHandler) Get(c *gin.Context) {
	feedID, ok := pathID(c, "id")
	if !ok {
		return
	}

	feed, err := h.feeds.GetFeedByID(c.Request.Context(), feedID)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
			return
		}
		logger.Log.Error("get feed", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, feed)
}

// List returns feeds, paginated.
func (h *FeedHandler) List(c *gin.Context) {
	limit, offset := pagination(c)

	feeds, err := h.feeds.ListFeeds(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Log.Error("list feeds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "limit": limit, "offset": offset})
}

// Update changes feed settings. Only fields present in the body change.
func (h *FeedHandler) Update(c *gin.Context) {
	feedID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	feed, err := h.feeds.GetFeedByID(ctx, feedID)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
			return
		}
		logger.Log.Error("get feed", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if req.Name != nil {
		feed.Name = *req.Name
	}
	if req.Description != nil {
		feed.Description = *req.Description
	}
	if req.ModerateImportedVideos != nil {
		feed.ModerateImportedVideos = *req.ModerateImportedVideos
	}
	if req.EnableAutomaticImports != nil {
		feed.EnableAutomaticImports = *req.EnableAutomaticImports
	}
	if req.StopIfSeen != nil {
		feed.StopIfSeen = *req.StopIfSeen
	}
	if req.UpdateMetadataOnImport != nil {
		feed.UpdateMetadataOnImport = *req.UpdateMetadataOnImport
	}
	if req.OwnerName != nil {
		feed.OwnerName = *req.OwnerName
	}
	if req.OwnerEmail != nil {
		feed.OwnerEmail = *req.OwnerEmail
	}

	if err := h.feeds.UpdateFeed(ctx, feed); err != nil {
		logger.Log.Error("update feed", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, feed)
}

// Delete removes a feed. Imported videos survive with a null feed
// reference.
func (h *FeedHandler) Delete(c *gin.Context) {
	feedID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.feeds.DeleteFeed(c.Request.Context(), feedID); err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
			return
		}
		logger.Log.Error("delete feed", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// TriggerImport runs an import for the feed synchronously and returns
// the completed run record.
func (h *FeedHandler) TriggerImport(c *gin.Context) {
	feedID, ok := pathID(c, "id")
	if !ok {
		return
	}

	feedImport, err := h.importer.RunImport(c.Request.Context(), feedID)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "feed not found"})
			return
		}
		logger.Log.Error("trigger import", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, feedImport)
}

// ListImports returns a feed's import runs, newest first.
func (h *FeedHandler) ListImports(c *gin.Context) {
	feedID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, offset := pagination(c)

	runs, err := h.imports.ListFeedImports(c.Request.Context(), feedID, limit, offset)
	if err != nil {
		logger.Log.Error("list imports", zap.Int64("feed_id", feedID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"imports": runs, "limit": limit, "offset": offset})
}

// ListImportSteps returns the step log of one import run.
func (h *FeedHandler) ListImportSteps(c *gin.Context) {
	importID, ok := pathID(c, "importId")
	if !ok {
		return
	}

	steps, err := h.imports.ListSteps(c.Request.Context(), importID)
	if err != nil {
		logger.Log.Error("list import steps", zap.Int64("feed_import_id", importID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

// pathID parses an int64 path parameter, replying 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id", "message": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// pagination reads limit/offset query parameters, clamped to sane
// bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
