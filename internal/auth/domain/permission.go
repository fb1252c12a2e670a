package domain

// Capability names an action the permission resolver can grant.
type Capability string

const (
	CapRolesAssign     Capability = "roles:assign"
	CapUsersManage     Capability = "users:manage"
	CapContentModerate Capability = "content:moderate"
	CapClubManage      Capability = "club:manage"
	CapProjectEdit     Capability = "project:edit"
	CapContentCreate   Capability = "content:create"
	CapContentRead     Capability = "content:read"
)

// Scope is the resource a capability is evaluated against. OwnerID is the
// identity owning it; empty when the capability is not resource-bound.
type Scope struct {
	Resource string
	OwnerID  string
}

// Permissions is the resolved view of one identity.
type Permissions struct {
	IdentityID   string
	Role         Role
	Rank         int
	Capabilities []Capability
}

func (p *Permissions) Has(c Capability) bool {
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Principal is an authenticated caller.
type Principal struct {
	IdentityID  string
	SessionID   string
	Role        Role
	AMR         []string
	Permissions *Permissions
}
