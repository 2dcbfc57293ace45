package domain

import "time"

// Role enumerates the actor roles known to the workflow.
type Role string

const (
	RoleRequester  Role = "REQUESTER"
	RoleAgentTier1 Role = "AGENT_TIER_1"
	RoleAgentTier2 Role = "AGENT_TIER_2"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// IsOperator reports whether the role may run workflow commands.
func (r Role) IsOperator() bool {
	switch r {
	case RoleAgentTier1, RoleAgentTier2, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// IsTier2OrAbove reports whether the role may own escalated tickets.
func (r Role) IsTier2OrAbove() bool {
	switch r {
	case RoleAgentTier2, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// UserStatus represents account lifecycle states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User models any actor in the system: requesters and operators alike.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	LocationID   string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the directory view of a user, as exposed to collaborators.
type Profile struct {
	UserID      string
	DisplayName string
	Role        Role
	LocationID  string
}

// Location represents a physical site tickets and staff belong to.
type Location struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
