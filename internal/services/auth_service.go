package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/photofeed-be/internal/auth"
	"github.com/isdelr/photofeed-be/internal/config"
	"github.com/isdelr/photofeed-be/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLen = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// AccessToken is the login response body.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthServiceProvider defines the interface for authentication services.
type AuthServiceProvider interface {
	Register(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (AccessToken, error)
	Resolve(ctx context.Context, token string) (models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	RequestVerify(ctx context.Context, email string) error
	Verify(ctx context.Context, token string) (models.User, error)
}

// AuthService validates credentials and issues and verifies bearer tokens.
type AuthService struct {
	users      UserServiceProvider
	tokens     *auth.TokenManager
	hooks      auth.UserHooks
	cfg        config.AuthConfig
	bcryptCost int
	dummyHash  []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserServiceProvider, tokens *auth.TokenManager, hooks auth.UserHooks, cfg config.AuthConfig) (*AuthService, error) {
	if hooks == nil {
		hooks = nopHooks{}
	}
	s := &AuthService{
		users:      users,
		tokens:     tokens,
		hooks:      hooks,
		cfg:        cfg,
		bcryptCost: bcrypt.DefaultCost,
	}
	if s.cfg.TokenLifetime <= 0 {
		s.cfg.TokenLifetime = time.Hour
	}
	if s.cfg.ResetTokenLifetime <= 0 {
		s.cfg.ResetTokenLifetime = time.Hour
	}
	if s.cfg.VerifyTokenLifetime <= 0 {
		s.cfg.VerifyTokenLifetime = 24 * time.Hour
	}
	// Compared against on unknown emails so login time does not reveal which emails exist.
	dummy, err := bcrypt.GenerateFromPassword([]byte("photofeed-dummy-password"), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) validateEmail(email string) error {
	if email == "" {
		return invalid("email", "email is required")
	}
	if !emailRegex.MatchString(email) {
		return invalid("email", "invalid email format")
	}
	return nil
}

func (s *AuthService) validatePassword(password, email string) error {
	if len(password) < MinPasswordLen {
		return invalid("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		return invalid("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordLen))
	}
	if email != "" && strings.Contains(strings.ToLower(password), email) {
		return invalid("password", "password must not contain the email")
	}
	return nil
}

// Register creates a new active user with a salted password hash.
func (s *AuthService) Register(ctx context.Context, email, password string) (models.User, error) {
	email = normalizeEmail(email)
	if err := s.validateEmail(email); err != nil {
		return models.User{}, err
	}
	if err := s.validatePassword(password, email); err != nil {
		return models.User{}, err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, invalid("email", "email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, string(hash))
	if err != nil {
		// Lost a race against a concurrent registration of the same email.
		if _, lookupErr := s.users.GetUserByEmail(ctx, email); lookupErr == nil {
			return models.User{}, invalid("email", "email already registered")
		}
		return models.User{}, err
	}

	s.hooks.OnRegister(ctx, user)

	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (AccessToken, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return AccessToken{}, err
		}
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return AccessToken{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AccessToken{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return AccessToken{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Claims{RegisteredClaims: subject(user.ID)}, auth.AudienceAccess, s.cfg.TokenLifetime)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return AccessToken{AccessToken: token, TokenType: "bearer"}, nil
}

// Resolve maps a bearer token to its active user.
func (s *AuthService) Resolve(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrUnauthorized
	}
	claims, err := s.tokens.Parse(token, auth.AudienceAccess)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrUnauthorized
		}
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrForbidden
	}

	user.PasswordHash = ""
	return user, nil
}

// ForgotPassword issues a reset token for an active user and hands it to the hooks.
// Unknown or inactive emails are silently ignored.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	token, err := s.tokens.Issue(auth.Claims{
		PasswordFingerprint: fingerprint(user.PasswordHash),
		RegisteredClaims:    subject(user.ID),
	}, auth.AudienceReset, s.cfg.ResetTokenLifetime)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	s.hooks.OnForgotPassword(ctx, user, token)
	return nil
}

// ResetPassword sets a new password using a reset token. The token stops
// working once the password it was issued against has changed.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	badToken := invalid("token", "invalid or expired reset token")

	claims, err := s.tokens.Parse(token, auth.AudienceReset)
	if err != nil {
		return badToken
	}
	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return badToken
		}
		return err
	}
	if !user.IsActive {
		return badToken
	}
	if subtle.ConstantTimeCompare([]byte(claims.PasswordFingerprint), []byte(fingerprint(user.PasswordHash))) != 1 {
		return badToken
	}

	if err := s.validatePassword(password, user.Email); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	log.Info().Str("user_id", user.ID).Msg("Password reset")
	return nil
}

// RequestVerify issues a verification token for an active, unverified user.
// Unknown, inactive or already verified emails are silently ignored.
func (s *AuthService) RequestVerify(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !user.IsActive || user.IsVerified {
		return nil
	}

	token, err := s.tokens.Issue(auth.Claims{
		Email:            user.Email,
		RegisteredClaims: subject(user.ID),
	}, auth.AudienceVerify, s.cfg.VerifyTokenLifetime)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.hooks.OnRequestVerify(ctx, user, token)
	return nil
}

// Verify marks the token's user as verified.
func (s *AuthService) Verify(ctx context.Context, token string) (models.User, error) {
	badToken := invalid("token", "invalid or expired verification token")

	claims, err := s.tokens.Parse(token, auth.AudienceVerify)
	if err != nil {
		return models.User{}, badToken
	}
	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, badToken
		}
		return models.User{}, err
	}
	if user.Email != claims.Email {
		return models.User{}, badToken
	}
	if user.IsVerified {
		return models.User{}, invalid("token", "user already verified")
	}

	user, err = s.users.MarkVerified(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

func subject(userID string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: userID}
}
