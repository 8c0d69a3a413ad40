package domain

import "time"

// DepartmentAgent assigns an agent to a department. The pair
// (AgentID, DepartmentID) identifies it.
type DepartmentAgent struct {
	AgentID           string
	DepartmentID      string
	Username          string
	DepartmentEnabled bool
	Count             int
	Order             int
	UpdatedAt         time.Time
}

// AgentRef is the part of an agent copied onto assignment records.
type AgentRef struct {
	ID       string
	Username string
}
