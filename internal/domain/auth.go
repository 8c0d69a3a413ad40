package domain

import "time"

// Token represents issued access token metadata.
type Token struct {
	Value     string
	AgentID   string
	Role      AgentRole
	ExpiresAt time.Time
}
