package auth

import "context"

// Permission names as stored in the permissions table.
const (
	PermAdmin        = "admin"
	PermGrantAccess  = "grant_access"
	PermRevokeAccess = "revoke_access"
	PermViewAudit    = "view_audit"
	PermManageUsers  = "manage_users"
)

type PermissionChecker interface {
	CanGrantAccess(userPermissions []string) bool
	CanRevokeAccess(userPermissions []string) bool
	CanViewAudit(userPermissions []string) bool
	CanManageUsers(userPermissions []string) bool
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error) {
	return c.HasAnyPermission(userPermissions, []string{permission}), nil
}

func (c *DefaultPermissionChecker) CanGrantAccessCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanGrantAccess(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanRevokeAccessCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanRevokeAccess(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanViewAuditCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanViewAudit(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanManageUsersCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanManageUsers(userPermissions), nil
}

func (c *DefaultPermissionChecker) IsAdminCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.IsAdmin(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanGrantAccess(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermGrantAccess, PermAdmin})
}

func (c *DefaultPermissionChecker) CanRevokeAccess(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermRevokeAccess, PermAdmin})
}

func (c *DefaultPermissionChecker) CanViewAudit(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermViewAudit, PermAdmin})
}

func (c *DefaultPermissionChecker) CanManageUsers(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermManageUsers, PermAdmin})
}

func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range requiredPermissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermAdmin})
}
