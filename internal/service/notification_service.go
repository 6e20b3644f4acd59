package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/car-marketplace/internal/events"
)

// NotificationService delivers verification and password-reset mail in
// response to account events. Send failures are logged, never surfaced to the
// account operation that raised the event.
type NotificationService struct {
	mailer Mailer
	logger *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(mailer Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		mailer: mailer,
		logger: logger,
	}
}

// EventTypes lists the account events this service wants to observe.
func (n *NotificationService) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventAccountRegistered,
		events.EventEmailChanged,
		events.EventVerificationResent,
		events.EventPasswordResetRequested,
		events.EventAccountRemoved,
	}
}

// Handle routes one account event to its mail handler.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventAccountRegistered, events.EventEmailChanged, events.EventVerificationResent:
		return n.handleVerificationLink(ctx, event)
	case events.EventPasswordResetRequested:
		return n.handlePasswordReset(ctx, event)
	case events.EventAccountRemoved:
		return n.handleAccountRemoved(ctx, event)
	default:
		return nil
	}
}

func (n *NotificationService) handleVerificationLink(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.VerificationLinkPayload)
	if !ok {
		n.logger.Warn("unexpected payload for verification event", zap.String("event_type", string(event.Type)))
		return nil
	}

	body := fmt.Sprintf(
		"Welcome to the marketplace.\n\nPlease confirm your email address by following this link:\n%s\n",
		payload.Link)
	if event.Type == events.EventEmailChanged {
		body = fmt.Sprintf(
			"Your email address was changed.\n\nPlease confirm the new address by following this link:\n%s\n",
			payload.Link)
	}

	if err := n.mailer.Send(event.Email, "Confirm your email address", body); err != nil {
		n.logger.Error("verification mail failed",
			zap.String("credential_id", event.CredentialID),
			zap.Error(err))
		return err
	}
	n.logger.Info("verification mail sent", zap.String("credential_id", event.CredentialID))
	return nil
}

func (n *NotificationService) handlePasswordReset(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetPayload)
	if !ok {
		n.logger.Warn("unexpected payload for password reset event", zap.String("event_type", string(event.Type)))
		return nil
	}

	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nFollow this link to choose a new password:\n%s\n\nIf you did not request this, you can ignore this message.\n",
		payload.Link)

	if err := n.mailer.Send(event.Email, "Reset your password", body); err != nil {
		n.logger.Error("password reset mail failed",
			zap.String("credential_id", event.CredentialID),
			zap.Error(err))
		return err
	}
	n.logger.Info("password reset mail sent", zap.String("credential_id", event.CredentialID))
	return nil
}

func (n *NotificationService) handleAccountRemoved(_ context.Context, event events.Event) error {
	n.logger.Info("account removed",
		zap.String("credential_id", event.CredentialID),
		zap.Any("payload", event.Payload))
	return nil
}
