package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/photofeed-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// PostServiceProvider defines the interface for post storage.
type PostServiceProvider interface {
	CreatePost(ctx context.Context, post models.Post) (models.Post, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	ListFeed(ctx context.Context) ([]models.Post, error)
	DeletePost(ctx context.Context, id, requesterID string) error
}

// PostService persists posts.
type PostService struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostService creates a new PostService.
func NewPostService(db *sqlx.DB) *PostService {
	return &PostService{db: db, now: time.Now}
}

const postColumns = "id, user_id, caption, url, file_type, file_name, created_at"

// CreatePost inserts a post, assigning its ID and creation time.
func (s *PostService) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	if post.UserID == "" {
		return models.Post{}, invalid("user_id", "owner is required")
	}
	if post.URL == "" {
		return models.Post{}, invalid("url", "url is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Post{}, err
	}
	defer tx.Rollback()

	post.ID = uuid.New().String()
	post.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	_, err = tx.NamedExecContext(ctx,
		"INSERT INTO posts ("+postColumns+") VALUES (:id, :user_id, :caption, :url, :file_type, :file_name, :created_at)",
		post)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// GetPost retrieves a single post by its ID.
func (s *PostService) GetPost(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	err := s.db.GetContext(ctx, &post, s.db.Rebind("SELECT "+postColumns+" FROM posts WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return models.Post{}, err
	}
	return post, nil
}

// ListFeed returns every post, most recent first. Posts sharing a timestamp
// keep the reverse of their insertion order.
func (s *PostService) ListFeed(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	err := s.db.SelectContext(ctx, &posts, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, seq DESC")
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost removes a post owned by requesterID in a single transaction.
func (s *PostService) DeletePost(ctx context.Context, id, requesterID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ownerID string
	err = tx.GetContext(ctx, &ownerID, tx.Rebind("SELECT user_id FROM posts WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return err
	}
	if ownerID != requesterID {
		return fmt.Errorf("post %s is not owned by %s: %w", id, requesterID, ErrForbidden)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM posts WHERE id = ? AND user_id = ?"), id, requesterID)
	if err != nil {
		return err
	}
	// A concurrent delete may have won between the lookup and here.
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
