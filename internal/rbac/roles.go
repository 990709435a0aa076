package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
	RoleService    = "service" // hidden role, used by provider-side integrations
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsHiddenRole(role string) bool { return role == RoleService }
