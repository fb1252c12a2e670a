package domain

import "fmt"

// Role is one of the fixed platform roles. Lower rank means more privilege.
type Role string

const (
	RoleSystemAdmin      Role = "system_admin"
	RoleCommitteeOfficer Role = "committee_officer"
	RoleClubCoordinator  Role = "club_coordinator"
	RoleClubMember       Role = "club_member"
	RoleGuest            Role = "guest"
)

// Roles lists every role from most to least privileged.
var Roles = []Role{
	RoleSystemAdmin,
	RoleCommitteeOfficer,
	RoleClubCoordinator,
	RoleClubMember,
	RoleGuest,
}

// GuestRank is the rank of the least privileged role. Unknown roles are
// treated as guests.
const GuestRank = 4

func (r Role) Rank() int {
	switch r {
	case RoleSystemAdmin:
		return 0
	case RoleCommitteeOfficer:
		return 1
	case RoleClubCoordinator:
		return 2
	case RoleClubMember:
		return 3
	default:
		return GuestRank
	}
}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
