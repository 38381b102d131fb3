package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stepacademy/course-access/internal/audit"
)

type PermissionAuthorizer interface {
	HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error)
	CanGrantAccessCtx(ctx context.Context, userPermissions []string) (bool, error)
	CanRevokeAccessCtx(ctx context.Context, userPermissions []string) (bool, error)
	CanViewAuditCtx(ctx context.Context, userPermissions []string) (bool, error)
	CanManageUsersCtx(ctx context.Context, userPermissions []string) (bool, error)
	IsAdminCtx(ctx context.Context, userPermissions []string) (bool, error)
}

// RBACAuthorization gates admin routes on permissions. Every rejected request
// is also appended to the audit log as a denied attempt, so operators can see
// who probed endpoints they were not allowed to use.
type RBACAuthorization struct {
	authorizer PermissionAuthorizer
	auditor    AuditRecorder
	logger     *slog.Logger
}

func NewRBACAuthorization(authorizer PermissionAuthorizer, auditor AuditRecorder, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		authorizer: authorizer,
		auditor:    auditor,
		logger:     logger,
	}
}

func (ra *RBACAuthorization) recordDenied(r *http.Request, userID, permission string) {
	details := fmt.Sprintf("missing permission %q for %s %s", permission, r.Method, r.URL.Path)
	if err := ra.auditor.Record(r.Context(), userID, audit.ActionDeniedAttempt, r.URL.Path, audit.TargetTypeRoute, details); err != nil {
		ra.logger.Warn("failed to record denied attempt", "error", err, "user_id", userID)
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, permission string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || user == nil {
			ra.logger.Warn("authorization check failed: user not found in context")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		hasAccess, err := ra.authorizer.HasPermission(r.Context(), user.Permissions, permission)
		if err != nil {
			ra.logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", user.ID, "permission", permission)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !hasAccess {
			ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"user_id", user.ID,
				"required_permission", permission,
				"user_permissions", user.Permissions)
			ra.recordDenied(r, user.ID, permission)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, permission)
	}
}

func (ra *RBACAuthorization) require(permission string, check func(ctx context.Context, perms []string) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			allowed, err := check(r.Context(), user.Permissions)
			if err != nil {
				ra.logger.ErrorContext(r.Context(), "permission check failed", "error", err, "user_id", user.ID, "permission", permission)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required_permission", permission)
				ra.recordDenied(r, user.ID, permission)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireGrantAccess() func(http.Handler) http.Handler {
	return ra.require(PermGrantAccess, ra.authorizer.CanGrantAccessCtx)
}

func (ra *RBACAuthorization) RequireRevokeAccess() func(http.Handler) http.Handler {
	return ra.require(PermRevokeAccess, ra.authorizer.CanRevokeAccessCtx)
}

func (ra *RBACAuthorization) RequireViewAudit() func(http.Handler) http.Handler {
	return ra.require(PermViewAudit, ra.authorizer.CanViewAuditCtx)
}

func (ra *RBACAuthorization) RequireManageUsers() func(http.Handler) http.Handler {
	return ra.require(PermManageUsers, ra.authorizer.CanManageUsersCtx)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require(PermAdmin, ra.authorizer.IsAdminCtx)
}
