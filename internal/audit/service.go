package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service records and reads audit entries. Record is best-effort from the
// caller's point of view: a failed append is logged and reported, but callers
// that have already committed an access change continue regardless.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) Record(ctx context.Context, actorID string, action Action, targetID, targetType, details string) error {
	entry := &Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		Details:    details,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.Append(entry); err != nil {
		s.logger.Error("failed to append audit entry",
			"error", err,
			"actor_id", actorID,
			"action", action,
			"target_id", targetID)
		return err
	}

	return nil
}

// ListByTarget returns entries newest-first for operational consumption.
func (s *Service) ListByTarget(ctx context.Context, targetID string, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByTarget(targetID, limit, offset)
}

func (s *Service) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByActor(actorID, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListAll(limit, offset)
}
