package services

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/photofeed-be/internal/auth"
	"github.com/isdelr/photofeed-be/internal/config"
	"github.com/isdelr/photofeed-be/internal/database"
	"github.com/isdelr/photofeed-be/internal/gateway"
	"github.com/isdelr/photofeed-be/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, dialect, err := database.New("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, dialect))
	return db
}

type recordedHook struct {
	kind  string
	user  models.User
	token string
}

type recordingHooks struct {
	mu    sync.Mutex
	calls []recordedHook
}

func (h *recordingHooks) add(kind string, user models.User, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, recordedHook{kind: kind, user: user, token: token})
}

func (h *recordingHooks) OnRegister(_ context.Context, user models.User) {
	h.add("register", user, "")
}

func (h *recordingHooks) OnForgotPassword(_ context.Context, user models.User, token string) {
	h.add("forgot", user, token)
}

func (h *recordingHooks) OnRequestVerify(_ context.Context, user models.User, token string) {
	h.add("verify", user, token)
}

func (h *recordingHooks) last(kind string) (recordedHook, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.calls) - 1; i >= 0; i-- {
		if h.calls[i].kind == kind {
			return h.calls[i], true
		}
	}
	return recordedHook{}, false
}

func newTestAuth(t *testing.T, db *sqlx.DB) (*AuthService, *auth.TokenManager, *recordingHooks) {
	t.Helper()
	tokens := newTestTokens(t)
	hooks := &recordingHooks{}
	svc, err := NewAuthService(NewUserService(db), tokens, hooks, testAuthConfig())
	require.NoError(t, err)
	return svc, tokens, hooks
}

func newTestTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)
	return tokens
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		TokenLifetime:       time.Hour,
		ResetTokenLifetime:  time.Hour,
		VerifyTokenLifetime: time.Hour,
	}
}

type fakeGateway struct {
	mu       sync.Mutex
	url      string
	err      error
	calls    int
	gotName  string
	gotBytes []byte
}

func (g *fakeGateway) Upload(_ context.Context, r io.Reader, fileName string) (gateway.UploadResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.gotName = fileName
	b, err := io.ReadAll(r)
	if err != nil {
		return gateway.UploadResult{}, err
	}
	g.gotBytes = b
	if g.err != nil {
		return gateway.UploadResult{}, g.err
	}
	return gateway.UploadResult{URL: g.url, FileID: "file-1", Name: fileName}, nil
}

type published struct {
	action  string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, action string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{action: action, payload: payload})
	return nil
}
