package service

import "github.com/helpdesk-kit/servicedesk/internal/domain"

// Operation names a role-checked workflow command.
type Operation string

const (
	OpApplyTransition   Operation = "apply_transition"
	OpReopen            Operation = "reopen"
	OpReopenSelfService Operation = "reopen_self_service"
	OpEscalate          Operation = "escalate"
	OpRequestEscalation Operation = "request_escalation"
	OpSoftDelete        Operation = "soft_delete"
	OpViewHistory       Operation = "view_history"
)

// Authorizer is the single authority consulted by every command entry point.
type Authorizer interface {
	CanPerform(role domain.Role, op Operation) bool
}

type roleAuthorizer struct {
	grants map[Operation]map[domain.Role]struct{}
}

// NewAuthorizer builds the default role grant table.
func NewAuthorizer() Authorizer {
	operators := []domain.Role{domain.RoleAgentTier1, domain.RoleAgentTier2, domain.RoleSupervisor, domain.RoleAdmin}
	grants := map[Operation][]domain.Role{
		OpApplyTransition:   operators,
		OpReopen:            operators,
		OpReopenSelfService: {domain.RoleRequester},
		OpEscalate:          {domain.RoleAgentTier2, domain.RoleSupervisor, domain.RoleAdmin},
		OpRequestEscalation: {domain.RoleAgentTier1},
		OpSoftDelete:        operators,
		OpViewHistory:       operators,
	}

	table := make(map[Operation]map[domain.Role]struct{}, len(grants))
	for op, roles := range grants {
		set := make(map[domain.Role]struct{}, len(roles))
		for _, role := range roles {
			set[role] = struct{}{}
		}
		table[op] = set
	}
	return &roleAuthorizer{grants: table}
}

func (a *roleAuthorizer) CanPerform(role domain.Role, op Operation) bool {
	set, ok := a.grants[op]
	if !ok {
		return false
	}
	_, allowed := set[role]
	return allowed
}
