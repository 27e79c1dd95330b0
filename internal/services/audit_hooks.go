package services

import (
	"context"
	"fmt"

	"github.com/isdelr/photofeed-be/internal/auth"
	"github.com/isdelr/photofeed-be/internal/models"
	"github.com/rs/zerolog/log"
)

// AuditHooks records user lifecycle events in the log and the events table.
// A failed event write is logged and never surfaced to the caller.
type AuditHooks struct {
	events EventServiceProvider
}

var _ auth.UserHooks = (*AuditHooks)(nil)

// NewAuditHooks creates a new AuditHooks.
func NewAuditHooks(events EventServiceProvider) *AuditHooks {
	return &AuditHooks{events: events}
}

func (h *AuditHooks) OnRegister(ctx context.Context, user models.User) {
	log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	h.record(ctx, "user.register", "info", fmt.Sprintf("User '%s' registered.", user.Email), user.ID)
}

// OnForgotPassword only logs the token at debug level; delivering it is left to an operator.
func (h *AuditHooks) OnForgotPassword(ctx context.Context, user models.User, token string) {
	log.Info().Str("user_id", user.ID).Msg("Password reset requested")
	log.Debug().Str("user_id", user.ID).Str("token", token).Msg("Password reset token issued")
	h.record(ctx, "user.forgot_password", "warn", fmt.Sprintf("Password reset requested for '%s'.", user.Email), user.ID)
}

func (h *AuditHooks) OnRequestVerify(ctx context.Context, user models.User, token string) {
	log.Info().Str("user_id", user.ID).Msg("Verification requested")
	log.Debug().Str("user_id", user.ID).Str("token", token).Msg("Verification token issued")
	h.record(ctx, "user.request_verify", "info", fmt.Sprintf("Verification requested for '%s'.", user.Email), user.ID)
}

func (h *AuditHooks) record(ctx context.Context, eventType, level, message, userID string) {
	if err := h.events.CreateEvent(ctx, eventType, level, message, &userID); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("user_id", userID).Msg("Failed to record audit event")
	}
}

type nopHooks struct{}

func (nopHooks) OnRegister(context.Context, models.User) {}
func (nopHooks) OnForgotPassword(context.Context, models.User, string) {}
func (nopHooks) OnRequestVerify(context.Context, models.User, string) {}
