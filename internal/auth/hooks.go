package auth

import (
	"context"

	"github.com/isdelr/photofeed-be/internal/models"
)

// UserHooks receives user lifecycle notifications from the auth service.
// Implementations must not block the caller on failure; errors are theirs to log.
type UserHooks interface {
	OnRegister(ctx context.Context, user models.User)
	OnForgotPassword(ctx context.Context, user models.User, token string)
	OnRequestVerify(ctx context.Context, user models.User, token string)
}
