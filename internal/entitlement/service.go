package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stepacademy/course-access/internal/audit"
	"github.com/stepacademy/course-access/internal/core/events"
	"github.com/stepacademy/course-access/internal/product"
)

// ProductCatalog is the slice of the catalog the engine needs: existence
// checks for grants.
type ProductCatalog interface {
	GetByID(id string) (*product.Product, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID string, action audit.Action, targetID, targetType, details string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// GrantParams carries everything a grant needs. ExpiresAt nil means no time
// limit.
type GrantParams struct {
	UserID        string
	ActorID       string
	ProductID     string
	Level         AccessLevel
	UnitsUnlocked int
	ExpiresAt     *time.Time
}

// Service is the entitlement engine. It owns every access-state transition;
// callers (admin handlers, the payment webhook, registration, the sweeper)
// never touch the store directly.
type Service struct {
	repo     Repository
	catalog  ProductCatalog
	auditor  AuditRecorder
	eventBus EventPublisher
	logger   *slog.Logger
}

func NewService(repo Repository, catalog ProductCatalog, auditor AuditRecorder, eventBus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		auditor:  auditor,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Grant supersedes any active entitlement for (user, product) and inserts a
// fresh active record. The audit append and the notification event are
// best-effort once the store transaction has committed: an unavailable
// auditor or bus never rolls back an access change.
func (s *Service) Grant(ctx context.Context, params GrantParams) (*Entitlement, error) {
	if _, err := s.catalog.GetByID(params.ProductID); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			s.logger.Warn("grant rejected: unknown product",
				"product_id", params.ProductID,
				"user_id", params.UserID,
				"actor_id", params.ActorID)
			return nil, ErrUnknownProduct
		}
		s.logger.Error("grant failed: catalog lookup error", "error", err, "product_id", params.ProductID)
		return nil, err
	}

	if !params.Level.Valid() {
		return nil, ErrInvalidAccessLevel
	}
	if params.UnitsUnlocked < 0 {
		return nil, ErrInvalidUnits
	}

	e := &Entitlement{
		ID:            uuid.NewString(),
		UserID:        params.UserID,
		ProductID:     params.ProductID,
		AccessLevel:   params.Level,
		Status:        StatusActive,
		UnitsUnlocked: params.UnitsUnlocked,
		GrantedBy:     params.ActorID,
		GrantedAt:     time.Now().UTC(),
		ExpiresAt:     params.ExpiresAt,
	}

	if err := s.repo.CreateSuperseding(e); err != nil {
		s.logger.Error("failed to persist grant",
			"error", err,
			"user_id", params.UserID,
			"product_id", params.ProductID)
		return nil, err
	}

	details := fmt.Sprintf("granted %s access to %s (units=%d)", e.AccessLevel, e.ProductID, e.UnitsUnlocked)
	if e.ExpiresAt != nil {
		details = fmt.Sprintf("%s until %s", details, e.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if err := s.auditor.Record(ctx, params.ActorID, audit.ActionGrantAccess, params.UserID, audit.TargetTypeUser, details); err != nil {
		s.logger.Warn("grant committed but audit append failed", "error", err, "entitlement_id", e.ID)
	}

	if err := s.eventBus.Publish(ctx, events.NewAccessGrantedEvent(
		e.ID, e.UserID, e.ProductID, string(e.AccessLevel), e.UnitsUnlocked, e.GrantedBy, e.ExpiresAt,
	)); err != nil {
		s.logger.Warn("grant committed but event publish failed", "error", err, "entitlement_id", e.ID)
	}

	s.logger.Info("access granted",
		"entitlement_id", e.ID,
		"user_id", e.UserID,
		"product_id", e.ProductID,
		"access_level", e.AccessLevel,
		"units_unlocked", e.UnitsUnlocked,
		"granted_by", e.GrantedBy)

	return e, nil
}

// Revoke marks any active entitlement for the pair as revoked. Revoking when
// nothing is active is a no-op, not an error: the desired end state already
// holds.
func (s *Service) Revoke(ctx context.Context, userID, actorID, productID string) error {
	revoked, err := s.repo.Supersede(userID, productID)
	if err != nil {
		s.logger.Error("failed to revoke access",
			"error", err,
			"user_id", userID,
			"product_id", productID)
		return err
	}

	details := fmt.Sprintf("revoked access to %s", productID)
	if revoked == 0 {
		details = fmt.Sprintf("revoked access to %s (no active entitlement)", productID)
	}
	if auditErr := s.auditor.Record(ctx, actorID, audit.ActionRevokeAccess, userID, audit.TargetTypeUser, details); auditErr != nil {
		s.logger.Warn("revoke committed but audit append failed", "error", auditErr, "user_id", userID)
	}

	if revoked > 0 {
		if pubErr := s.eventBus.Publish(ctx, events.NewAccessRevokedEvent(userID, productID, actorID)); pubErr != nil {
			s.logger.Warn("revoke committed but event publish failed", "error", pubErr, "user_id", userID)
		}
	}

	s.logger.Info("access revoked",
		"user_id", userID,
		"product_id", productID,
		"revoked_by", actorID,
		"records_revoked", revoked)

	return nil
}

// CheckAccess is a pure read: an entitlement past its expires_at reports no
// access without being transitioned here. The authoritative status change is
// deferred to SweepExpired so the hot dashboard path never writes.
func (s *Service) CheckAccess(ctx context.Context, userID, productID string, now time.Time) (AccessDecision, error) {
	e, err := s.repo.FindActive(userID, productID)
	if err != nil {
		s.logger.Error("access check failed", "error", err, "user_id", userID, "product_id", productID)
		return NoAccess, err
	}
	if e == nil {
		return NoAccess, nil
	}
	if e.IsExpired(now) {
		return NoAccess, nil
	}

	return AccessDecision{
		HasAccess:     true,
		Level:         e.AccessLevel,
		UnitsUnlocked: e.UnitsUnlocked,
	}, nil
}

// RegisterTrial grants the time-boxed partial entitlement handed out at
// account creation.
func (s *Service) RegisterTrial(ctx context.Context, userID, productID string, trialDays, initialUnits int) (*Entitlement, error) {
	if trialDays <= 0 {
		return nil, ErrInvalidTrialDays
	}

	expiresAt := time.Now().UTC().AddDate(0, 0, trialDays)
	return s.Grant(ctx, GrantParams{
		UserID:        userID,
		ActorID:       ActorSystem,
		ProductID:     productID,
		Level:         AccessLevelPartial,
		UnitsUnlocked: initialUnits,
		ExpiresAt:     &expiresAt,
	})
}

// SweepExpired transitions every active entitlement whose expires_at is in
// the past to expired and returns the count. It runs as one bulk statement
// and is safe under scheduler overlap: re-sweeping an expired record is a
// no-op. Deliberately silent: no per-record notifications.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.ExpireBefore(now)
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return 0, err
	}

	if count > 0 {
		s.logger.Info("expiry sweep transitioned entitlements", "count", count, "swept_at", now.UTC())
	}

	return count, nil
}

// ListForUser returns the full entitlement history for a user, newest grant
// first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Entitlement, error) {
	list, err := s.repo.ListByUser(userID)
	if err != nil {
		s.logger.Error("failed to list entitlements", "error", err, "user_id", userID)
		return nil, err
	}
	return list, nil
}

// RemoveAllForUser deletes a user's entitlement rows as part of full user
// deletion. This is the only path that deletes entitlements.
func (s *Service) RemoveAllForUser(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUser(userID); err != nil {
		s.logger.Error("failed to delete entitlements for user", "error", err, "user_id", userID)
		return err
	}
	return nil
}
