package model

import "github.com/google/uuid"

// Role is the kind of account behind an authenticated request.
type Role string

// Account roles.
const (
	RoleMember Role = "member"
	RoleBroker Role = "broker"
	RoleVenue  Role = "venue"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleBroker, RoleVenue:
		return true
	}
	return false
}

// Identity is the authenticated caller of one request.
type Identity struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsMember reports whether the caller is a member account. Brokers are members.
func (i Identity) IsMember() bool {
	return i.Role == RoleMember || i.Role == RoleBroker
}

// IsBroker reports whether the caller is a broker.
func (i Identity) IsBroker() bool { return i.Role == RoleBroker }

// IsVenue reports whether the caller is a venue.
func (i Identity) IsVenue() bool { return i.Role == RoleVenue }
