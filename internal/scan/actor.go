package scan

// Role is the caller's role as carried in its token
type Role string

const (
	RoleOperator   Role = "operator"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Actor is the authenticated caller of a core operation
type Actor struct {
	UserID   string
	TenantID string
	Role     Role
}

// Elevated reports whether the actor may resolve conflicts and re-project
func (a Actor) Elevated() bool {
	switch a.Role {
	case RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CrossTenant reports whether the actor sees every tenant
func (a Actor) CrossTenant() bool {
	return a.Role == RoleSuperAdmin
}

// Scope is the tenant filter for the actor's reads; empty means all tenants
func (a Actor) Scope() string {
	if a.CrossTenant() {
		return ""
	}
	return a.TenantID
}

// CanAccess reports whether the actor may touch a record of tenantID
func (a Actor) CanAccess(tenantID string) bool {
	return a.CrossTenant() || a.TenantID == tenantID
}
