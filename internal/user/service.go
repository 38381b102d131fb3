package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/entitlement"
)

type AuditRecorder interface {
	Record(ctx context.Context, actorID string, action audit.Action, targetID, targetType, details string) error
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// AccessEngine is the slice of the entitlement engine user management needs:
// the trial grant at registration and cleanup at deletion.
type AccessEngine interface {
	RegisterTrial(ctx context.Context, userID, productID string, trialDays, initialUnits int) (*entitlement.Entitlement, error)
	RemoveAllForUser(ctx context.Context, userID string) error
}

type NotificationCleaner interface {
	RemoveAllForUser(ctx context.Context, userID string) error
}

// TrialPolicy is what every new registration receives.
type TrialPolicy struct {
	ProductID string
	Days      int
	Units     int
}

type Service struct {
	repo          Repository
	hasher        PasswordHasher
	auditor       AuditRecorder
	engine        AccessEngine
	notifications NotificationCleaner
	trial         TrialPolicy
	logger        *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, auditor AuditRecorder, engine AccessEngine, notifications NotificationCleaner, trial TrialPolicy, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		hasher:        hasher,
		auditor:       auditor,
		engine:        engine,
		notifications: notifications,
		trial:         trial,
		logger:        logger,
	}
}

// Register creates the account and hands out the trial entitlement. The
// account is the source of truth: if the trial grant fails the registration
// still succeeds and the failure is logged, since the user can be granted
// access later by an admin.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(dto.Email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, err
	}

	if auditErr := s.auditor.Record(ctx, u.ID, audit.ActionRegister, u.ID, audit.TargetTypeUser, "account registered"); auditErr != nil {
		s.logger.Warn("registration committed but audit append failed", "error", auditErr, "user_id", u.ID)
	}

	if _, trialErr := s.engine.RegisterTrial(ctx, u.ID, s.trial.ProductID, s.trial.Days, s.trial.Units); trialErr != nil {
		s.logger.Error("registration committed but trial grant failed",
			"error", trialErr,
			"user_id", u.ID,
			"product_id", s.trial.ProductID)
	}

	s.logger.Info("user registered", "user_id", u.ID, "email", u.Email)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(limit, offset)
}

// Update applies profile changes and records who made them.
func (s *Service) Update(ctx context.Context, actorID, userID string, dto UpdateDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	var changes []string
	if dto.Name != nil && *dto.Name != u.Name {
		u.Name = *dto.Name
		changes = append(changes, "name")
	}
	if dto.IsActive != nil && *dto.IsActive != u.IsActive {
		u.IsActive = *dto.IsActive
		changes = append(changes, "is_active")
	}

	if len(changes) == 0 {
		return u, nil
	}

	u.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", userID)
		return nil, err
	}

	details := fmt.Sprintf("updated fields: %v", changes)
	if auditErr := s.auditor.Record(ctx, actorID, audit.ActionUpdateUser, userID, audit.TargetTypeUser, details); auditErr != nil {
		s.logger.Warn("update committed but audit append failed", "error", auditErr, "user_id", userID)
	}

	return u, nil
}

// Delete removes the account along with its entitlements and notification
// rows. Audit entries are retained: the log must still answer what happened
// to an account that no longer exists.
func (s *Service) Delete(ctx context.Context, actorID, userID string) error {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}

	if err := s.engine.RemoveAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.notifications.RemoveAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(userID); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", userID)
		return err
	}

	details := fmt.Sprintf("deleted account %s", u.Email)
	if auditErr := s.auditor.Record(ctx, actorID, audit.ActionDeleteUser, userID, audit.TargetTypeUser, details); auditErr != nil {
		s.logger.Warn("deletion committed but audit append failed", "error", auditErr, "user_id", userID)
	}

	s.logger.Info("user deleted", "user_id", userID, "deleted_by", actorID)
	return nil
}
