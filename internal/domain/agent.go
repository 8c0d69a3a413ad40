package domain

import "time"

// AgentRole enumerates livechat operator roles.
type AgentRole string

const (
	AgentRoleAgent   AgentRole = "livechat-agent"
	AgentRoleManager AgentRole = "livechat-manager"
	AgentRoleAdmin   AgentRole = "admin"
)

// Valid reports whether r is a known role.
func (r AgentRole) Valid() bool {
	switch r {
	case AgentRoleAgent, AgentRoleManager, AgentRoleAdmin:
		return true
	}
	return false
}

// Agent is a support operator that can serve one or more departments.
type Agent struct {
	ID           string
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the identity copied onto department assignments.
func (a *Agent) Ref() AgentRef {
	return AgentRef{ID: a.ID, Username: a.Username}
}
