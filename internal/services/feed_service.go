package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/isdelr/photofeed-be/internal/broker"
	"github.com/isdelr/photofeed-be/internal/gateway"
	"github.com/isdelr/photofeed-be/internal/models"
	"github.com/isdelr/photofeed-be/internal/staging"
	"github.com/isdelr/photofeed-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// FeedServiceProvider defines the interface for the feed operations.
type FeedServiceProvider interface {
	Stage(r io.Reader, fileName string) (*staging.File, error)
	Upload(ctx context.Context, owner models.User, r io.Reader, fileName, caption string) (models.Post, error)
	Publish(ctx context.Context, owner models.User, file *staging.File, caption string) (models.Post, error)
	ListFeed(ctx context.Context) ([]models.Post, error)
	DeletePost(ctx context.Context, postID string, requester models.User) error
}

// FeedService orchestrates staging, the image host and the post store.
type FeedService struct {
	posts     PostServiceProvider
	images    gateway.ImageGateway
	stager    *staging.Stager
	publisher broker.Publisher
}

// NewFeedService creates a new FeedService. publisher may be nil.
func NewFeedService(posts PostServiceProvider, images gateway.ImageGateway, stager *staging.Stager, publisher broker.Publisher) *FeedService {
	return &FeedService{
		posts:     posts,
		images:    images,
		stager:    stager,
		publisher: publisher,
	}
}

// Stage buffers an incoming file. The caller owns the result and must Release it.
func (s *FeedService) Stage(r io.Reader, fileName string) (*staging.File, error) {
	f, err := s.stager.Stage(r, fileName)
	if err != nil {
		return nil, stagingError(err)
	}
	return f, nil
}

// Upload stages r, forwards it to the image host and stores the resulting post.
// The staged copy is removed whatever the outcome.
func (s *FeedService) Upload(ctx context.Context, owner models.User, r io.Reader, fileName, caption string) (models.Post, error) {
	var post models.Post
	err := s.stager.Scoped(r, fileName, func(f *staging.File) error {
		var err error
		post, err = s.Publish(ctx, owner, f, caption)
		return err
	})
	if err != nil {
		return models.Post{}, stagingError(err)
	}
	return post, nil
}

// Publish forwards an already staged file and stores the post. It consumes
// file: the staged bytes are released before Publish returns.
func (s *FeedService) Publish(ctx context.Context, owner models.User, file *staging.File, caption string) (models.Post, error) {
	defer file.Release()

	if owner.ID == "" {
		return models.Post{}, ErrUnauthorized
	}

	src, err := file.Open()
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to open staged file: %w", err)
	}
	result, err := s.images.Upload(ctx, src, file.Name())
	src.Close()
	if err != nil {
		log.Error().Err(err).Str("user_id", owner.ID).Str("file_name", file.Name()).Msg("Image upload failed")
		if errors.Is(err, gateway.ErrInvalidInput) {
			return models.Post{}, invalid("file", err.Error())
		}
		return models.Post{}, &UploadError{Cause: err}
	}

	post, err := s.posts.CreatePost(ctx, models.Post{
		UserID:   owner.ID,
		Caption:  caption,
		URL:      result.URL,
		FileType: models.FileTypePhoto,
		FileName: file.Name(),
	})
	if err != nil {
		// The remote file stays on the host; only the post row is transactional.
		log.Error().Err(err).Str("user_id", owner.ID).Str("url", result.URL).Msg("Failed to persist post after upload")
		return models.Post{}, err
	}

	log.Info().Str("post_id", post.ID).Str("user_id", owner.ID).Msg("Post created")
	s.notify(ctx, websocket.ActionPostCreated, post)
	return post, nil
}

// ListFeed returns all posts, most recent first.
func (s *FeedService) ListFeed(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListFeed(ctx)
}

// DeletePost removes a post owned by requester.
func (s *FeedService) DeletePost(ctx context.Context, postID string, requester models.User) error {
	if err := s.posts.DeletePost(ctx, postID, requester.ID); err != nil {
		return err
	}
	log.Info().Str("post_id", postID).Str("user_id", requester.ID).Msg("Post deleted")
	s.notify(ctx, websocket.ActionPostDeleted, map[string]string{"id": postID})
	return nil
}

func (s *FeedService) notify(ctx context.Context, action string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, action, payload); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to publish feed event")
	}
}

func stagingError(err error) error {
	switch {
	case errors.Is(err, staging.ErrEmptyFile):
		return invalid("file", "file is empty")
	case errors.Is(err, staging.ErrNoExtension):
		return invalid("file", "file name must have an extension")
	case errors.Is(err, staging.ErrTooLarge):
		return fmt.Errorf("%w: %v", ErrTooLarge, err)
	case errors.Is(err, staging.ErrInsufficientSpace):
		return fmt.Errorf("%w: %v", ErrInsufficientStorage, err)
	}
	return err
}
