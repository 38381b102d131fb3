package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stepacademy/course-access/internal/core/events"
)

// Service persists notification requests and hands them to a Sender.
// Failures anywhere in this package are logged and swallowed: an access
// change that already committed must never be rolled back or failed because
// a message could not go out.
type Service struct {
	repo   Repository
	sender Sender
	logger *slog.Logger
}

func NewService(repo Repository, sender Sender, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		sender: sender,
		logger: logger,
	}
}

// Notify records the request and attempts delivery. It never returns an
// error to the caller.
func (s *Service) Notify(ctx context.Context, userID, title, message string, channel Channel, kind Kind) {
	req := &Request{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Channel: channel,
		Kind:    kind,
		Status:  StatusPending,
	}

	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to persist notification request",
			"error", err,
			"user_id", userID,
			"channel", channel)
		return
	}

	if err := s.sender.Send(req); err != nil {
		s.logger.Warn("notification delivery failed, left pending",
			"error", err,
			"notification_id", req.ID,
			"user_id", userID,
			"channel", channel)
		return
	}

	if err := s.repo.MarkSent(req.ID); err != nil {
		s.logger.Error("failed to mark notification sent", "error", err, "notification_id", req.ID)
		return
	}

	s.logger.Info("notification sent",
		"notification_id", req.ID,
		"user_id", userID,
		"channel", channel,
		"kind", kind)
}

func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*Request, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByUser(userID, limit, offset)
}

// RemoveAllForUser clears a user's notification rows during user deletion.
func (s *Service) RemoveAllForUser(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(userID)
}

// SubscribeToBus wires the service to access-change events so grants and
// revokes produce user-facing messages without the engine knowing about
// notification mechanics.
func (s *Service) SubscribeToBus(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeAccessGranted, func(ctx context.Context, event events.Event) error {
		granted, ok := event.(*events.AccessGrantedEvent)
		if !ok {
			s.logger.Error("unexpected payload for access granted event", "event_id", event.EventID())
			return nil
		}

		message := fmt.Sprintf("You now have %s access to %s.", granted.AccessLevel, granted.ProductID)
		if granted.ExpiresAt != nil {
			message = fmt.Sprintf("%s Valid until %s.", message, granted.ExpiresAt.Format("2 January 2006"))
		}
		s.Notify(ctx, granted.UserID, "Access updated", message, ChannelInApp, KindSuccess)
		return nil
	})

	bus.Subscribe(events.EventTypeAccessRevoked, func(ctx context.Context, event events.Event) error {
		revoked, ok := event.(*events.AccessRevokedEvent)
		if !ok {
			s.logger.Error("unexpected payload for access revoked event", "event_id", event.EventID())
			return nil
		}

		message := fmt.Sprintf("Your access to %s has been revoked.", revoked.ProductID)
		s.Notify(ctx, revoked.UserID, "Access revoked", message, ChannelInApp, KindInfo)
		return nil
	})
}

// InAppSender delivers by leaving the persisted request visible to the
// dashboard; there is no external hop to fail.
type InAppSender struct{}

func NewInAppSender() *InAppSender {
	return &InAppSender{}
}

func (InAppSender) Send(req *Request) error {
	return nil
}
