package auth

// Permission is an atomic capability, independent of any resource instance.
type Permission string

const (
	PermCreateTask        Permission = "create_task"
	PermUpdateTask        Permission = "update_task"
	PermDeleteTask        Permission = "delete_task"
	PermViewTasks         Permission = "view_tasks"
	PermViewAudit         Permission = "view_audit"
	PermManageOrg         Permission = "manage_org"
	PermManageUsers       Permission = "manage_users"
	PermCreateOwner       Permission = "create_owner"
	PermCreateAdmin       Permission = "create_admin"
	PermViewPlatformUsers Permission = "view_platform_users"
)

// AllPermissions is the full permission catalog.
var AllPermissions = []Permission{
	PermCreateTask,
	PermUpdateTask,
	PermDeleteTask,
	PermViewTasks,
	PermViewAudit,
	PermManageOrg,
	PermManageUsers,
	PermCreateOwner,
	PermCreateAdmin,
	PermViewPlatformUsers,
}

var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: AllPermissions,
	RoleOwner: {
		PermCreateTask,
		PermUpdateTask,
		PermDeleteTask,
		PermViewTasks,
		PermViewAudit,
		PermManageOrg,
		PermManageUsers,
		PermCreateAdmin,
	},
	RoleAdmin: {
		PermCreateTask,
		PermUpdateTask,
		PermDeleteTask,
		PermViewTasks,
		PermViewAudit,
	},
	RoleUser: {
		PermViewTasks,
	},
}

// Permits reports whether role holds permission. Unknown roles hold nothing.
func Permits(role Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionsFor returns a copy of the permission set granted to role.
func PermissionsFor(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
