package dto

import (
	"time"

	"github.com/spec-kit/livechat-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Username string           `json:"username"`
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     domain.AgentRole `json:"role"`
}

// SaveAgentDepartmentsRequest replaces an agent's roster.
type SaveAgentDepartmentsRequest struct {
	DepartmentIDs []string `json:"departmentIds"`
}

// AgentResponse is the API view of an agent.
type AgentResponse struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.AgentRole `json:"role"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewAgentResponse maps an agent without its password hash.
func NewAgentResponse(a *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:        a.ID,
		Username:  a.Username,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}
