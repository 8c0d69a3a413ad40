package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDepartmentSaved          EventType = "department_saved"
	EventDepartmentEnabledChanged EventType = "department_enabled_changed"
	EventDepartmentRemoved        EventType = "department_removed"
	EventAgentDepartmentsChanged  EventType = "agent_departments_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	DepartmentID string    `json:"department_id,omitempty"`
	AgentID      string    `json:"agent_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload"`
}

// DepartmentSavedPayload payload.
type DepartmentSavedPayload struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Created bool   `json:"created"`
}

// DepartmentEnabledChangedPayload payload.
type DepartmentEnabledChangedPayload struct {
	Enabled             bool  `json:"enabled"`
	AssignmentsAffected int64 `json:"assignments_affected"`
}

// AgentDepartmentsChangedPayload payload.
type AgentDepartmentsChangedPayload struct {
	Username string   `json:"username"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
}
