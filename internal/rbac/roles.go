package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleOperator   = "operator" // cron jobs and front-desk tooling
	RoleViewer     = "viewer"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsKnownRole(role string) bool {
	switch role {
	case RoleOwner, RoleOperator, RoleViewer, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
