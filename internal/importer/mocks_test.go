package importer

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vidfeed/video-feed-import-go/internal/db/models"
	"github.com/vidfeed/video-feed-import-go/internal/scraper"
)

// Mock repositories

type mockFeedRepo struct {
	mock.Mock
}

func (m *mockFeedRepo) CreateFeed(ctx context.Context, feed *models.Feed) error {
	args := m.Called(ctx, feed)
	return args.Error(0)
}

func (m *mockFeedRepo) GetFeedByID(ctx context.Context, feedID int64) (*models.Feed, error) {
	args := m.Called(ctx, feedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Feed), args.Error(1)
}

func (m *mockFeedRepo) GetFeedByURL(ctx context.Context, originalURL string) (*models.Feed, error) {
	args := m.Called(ctx, originalURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Feed), args.Error(1)
}

func (m *mockFeedRepo) ListFeeds(ctx context.Context, limit, offset int) ([]*models.Feed, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Feed), args.Error(1)
}

func (m *mockFeedRepo) ListAutomaticImportFeeds(ctx context.Context) ([]*models.Feed, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Feed), args.Error(1)
}

func (m *mockFeedRepo) UpdateFeed(ctx context.Context, feed *models.Feed) error {
	args := m.Called(ctx, feed)
	return args.Error(0)
}

func (m *mockFeedRepo) DeleteFeed(ctx context.Context, feedID int64) error {
	args := m.Called(ctx, feedID)
	return args.Error(0)
}

type mockImportRepo struct {
	mock.Mock
}

func (m *mockImportRepo) CreateFeedImport(ctx context.Context, feedImport *models.FeedImport) error {
	args := m.Called(ctx, feedImport)
	return args.Error(0)
}

func (m *mockImportRepo) UpdateFeedImport(ctx context.Context, feedImport *models.FeedImport) error {
	args := m.Called(ctx, feedImport)
	return args.Error(0)
}

func (m *mockImportRepo) GetFeedImportByID(ctx context.Context, importID int64) (*models.FeedImport, error) {
	args := m.Called(ctx, importID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeedImport), args.Error(1)
}

func (m *mockImportRepo) ListFeedImports(ctx context.Context, feedID int64, limit, offset int) ([]*models.FeedImport, error) {
	args := m.Called(ctx, feedID, limit, offset)
	return args.Get(0).([]*models.FeedImport), args.Error(1)
}

func (m *mockImportRepo) CreateStep(ctx context.Context, step *models.FeedImportStep) error {
	args := m.Called(ctx, step)
	return args.Error(0)
}

func (m *mockImportRepo) ListSteps(ctx context.Context, importID int64) ([]*models.FeedImportStep, error) {
	args := m.Called(ctx, importID)
	return args.Get(0).([]*models.FeedImportStep), args.Error(1)
}

func (m *mockImportRepo) CountStepsByType(ctx context.Context, importID int64) (map[models.StepType]int, error) {
	args := m.Called(ctx, importID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.StepType]int), args.Error(1)
}

type mockVideoRepo struct {
	mock.Mock
}

func (m *mockVideoRepo) CreateVideo(ctx context.Context, video *models.Video) error {
	args := m.Called(ctx, video)
	return args.Error(0)
}

func (m *mockVideoRepo) GetVideoByID(ctx context.Context, videoID int64) (*models.Video, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Video), args.Error(1)
}

func (m *mockVideoRepo) ListVideos(ctx context.Context, status models.VideoStatus, limit, offset int) ([]*models.Video, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Video), args.Error(1)
}

func (m *mockVideoRepo) ListVideosByFeed(ctx context.Context, feedID int64, limit, offset int) ([]*models.Video, error) {
	args := m.Called(ctx, feedID, limit, offset)
	return args.Get(0).([]*models.Video), args.Error(1)
}

func (m *mockVideoRepo) UpdateVideoStatus(ctx context.Context, videoID int64, status models.VideoStatus) error {
	args := m.Called(ctx, videoID, status)
	return args.Error(0)
}

func (m *mockVideoRepo) DeleteVideo(ctx context.Context, videoID int64) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func (m *mockVideoRepo) ListImportVideosByStatus(ctx context.Context, importID int64, status models.VideoStatus) ([]*models.Video, error) {
	args := m.Called(ctx, importID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Video), args.Error(1)
}

func (m *mockVideoRepo) PublishVideos(ctx context.Context, videoIDs []int64, at time.Time) (int64, error) {
	args := m.Called(ctx, videoIDs, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVideoRepo) TransitionImportVideos(ctx context.Context, importID int64, from, to models.VideoStatus) (int64, error) {
	args := m.Called(ctx, importID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVideoRepo) CreateVideoFile(ctx context.Context, file *models.VideoFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *mockVideoRepo) ListVideoFiles(ctx context.Context, videoID int64) ([]*models.VideoFile, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).([]*models.VideoFile), args.Error(1)
}

type mockIdentifierRepo struct {
	mock.Mock
}

func (m *mockIdentifierRepo) HashesExist(ctx context.Context, feedID int64, hashes []string) (bool, error) {
	args := m.Called(ctx, feedID, hashes)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdentifierRepo) CreateHashes(ctx context.Context, feedID int64, hashes []string) error {
	args := m.Called(ctx, feedID, hashes)
	return args.Error(0)
}

// Fake remote video and iterator

type fakeRemote struct {
	url       string
	link      string
	embed     string
	flash     string
	title     string
	desc      string
	guid      string
	user      string
	userURL   string
	thumb     string
	published *time.Time
	files     []scraper.RemoteFile

	loadErr error
}

func (f *fakeRemote) Load(ctx context.Context) error { return f.loadErr }
func (f *fakeRemote) URL() string                    { return f.url }
func (f *fakeRemote) Link() string                   { return f.link }
func (f *fakeRemote) EmbedCode() string              { return f.embed }
func (f *fakeRemote) FlashEnclosureURL() string      { return f.flash }
func (f *fakeRemote) Title() string                  { return f.title }
func (f *fakeRemote) Description() string            { return f.desc }
func (f *fakeRemote) GUID() string                   { return f.guid }
func (f *fakeRemote) User() string                   { return f.user }
func (f *fakeRemote) UserURL() string                { return f.userURL }
func (f *fakeRemote) ThumbnailURL() string           { return f.thumb }
func (f *fakeRemote) PublishDatetime() *time.Time    { return f.published }
func (f *fakeRemote) Files() []scraper.RemoteFile    { return f.files }

// fakeIterator yields a fixed slice of records, optionally failing on
// Load or partway through the sequence.
type fakeIterator struct {
	items    []scraper.RemoteVideo
	metadata scraper.FeedMetadata
	loadErr  error
	failAt   int // 1-based position at which Next errors; 0 disables
	nextErr  error
	pos      int
}

func (f *fakeIterator) Load(ctx context.Context) error {
	return f.loadErr
}

func (f *fakeIterator) Next(ctx context.Context) (scraper.RemoteVideo, error) {
	f.pos++
	if f.failAt > 0 && f.pos == f.failAt {
		return nil, f.nextErr
	}
	if f.pos > len(f.items) {
		return nil, scraper.ErrEndOfFeed
	}
	return f.items[f.pos-1], nil
}

func (f *fakeIterator) Metadata() scraper.FeedMetadata {
	return f.metadata
}
