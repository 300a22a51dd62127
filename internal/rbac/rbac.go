package rbac

import "github.com/fantics-casino/backend/internal/config"

// Role constants
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
	RolePlayer  = "player"
)

// Permission constants
const (
	PermManageCases        = "manage_cases"
	PermSetBalance         = "set_balance"
	PermViewStats          = "view_stats"
	PermProcessWithdrawals = "process_withdrawals"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermManageCases, PermSetBalance, PermViewStats, PermProcessWithdrawals,
	},
	RoleSupport: {
		PermViewStats,
		// Support CANNOT: PermSetBalance, PermManageCases
	},
	RolePlayer: {},
}

// RoleFor resolves the role of a Telegram user from the configured id lists.
// Admin wins when an id is listed in both.
func RoleFor(cfg *config.Config, telegramID int64) string {
	switch {
	case cfg.IsAdmin(telegramID):
		return RoleAdmin
	case cfg.IsSupport(telegramID):
		return RoleSupport
	}
	return RolePlayer
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation checks if permission moves fantics (admin-only).
func IsFinancialOperation(permission string) bool {
	return permission == PermSetBalance || permission == PermProcessWithdrawals
}
