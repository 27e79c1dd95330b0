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

// UserServiceProvider defines the interface for user storage.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) (models.User, error)
}

// UserService persists user identities.
type UserService struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

const userColumns = "id, email, password_hash, is_active, is_verified, is_superuser, created_at"

// GetUserByID retrieves a single user by their ID, including the password hash.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// CreateUser inserts an active, unverified user with an already hashed password.
func (s *UserService) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"INSERT INTO users (id, email, password_hash, is_active, is_verified, is_superuser, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		user.ID, user.Email, user.PasswordHash, user.IsActive, user.IsVerified, user.IsSuperuser, user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces a user's password hash.
func (s *UserService) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE users SET password_hash = ? WHERE id = ?"), passwordHash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkVerified flags a user's email as verified.
func (s *UserService) MarkVerified(ctx context.Context, id string) (models.User, error) {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE users SET is_verified = ? WHERE id = ?"), true, id); err != nil {
		return models.User{}, err
	}
	return s.GetUserByID(ctx, id)
}
