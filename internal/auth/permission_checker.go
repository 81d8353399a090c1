package auth

import "context"

type PermissionChecker interface {
	CanApproveTransactions(userPermissions []string) bool
	CanRejectTransactions(userPermissions []string) bool
	CanManageEvents(userPermissions []string) bool
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
	IsOrganizer(userPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error) {
	return c.HasAnyPermission(userPermissions, []string{permission}), nil
}

func (c *DefaultPermissionChecker) CanApproveTransactionsCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanApproveTransactions(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanRejectTransactionsCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanRejectTransactions(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanManageEventsCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanManageEvents(userPermissions), nil
}

func (c *DefaultPermissionChecker) IsOrganizerCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.IsOrganizer(userPermissions), nil
}

func (c *DefaultPermissionChecker) IsAdminCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.IsAdmin(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanApproveTransactions(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"approve_transactions", "admin"})
}

func (c *DefaultPermissionChecker) CanRejectTransactions(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"reject_transactions", "admin"})
}

func (c *DefaultPermissionChecker) CanManageEvents(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"manage_events", "admin"})
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

func (c *DefaultPermissionChecker) IsOrganizer(userPermissions []string) bool {
	organizerPerms := []string{"organizer", "admin", "approve_transactions", "reject_transactions", "manage_events"}
	return c.HasAnyPermission(userPermissions, organizerPerms)
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"admin"})
}
