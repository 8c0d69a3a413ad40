package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/livechat-service/internal/domain"
)

// DepartmentRequest is the full writable state of a department.
type DepartmentRequest struct {
	Name                        string   `json:"name"`
	Enabled                     bool     `json:"enabled"`
	Description                 string   `json:"description"`
	Email                       string   `json:"email"`
	ShowOnRegistration          bool     `json:"showOnRegistration"`
	ShowOnOfflineForm           bool     `json:"showOnOfflineForm"`
	RequestTagBeforeClosingChat bool     `json:"requestTagBeforeClosingChat"`
	ChatClosingTags             []string `json:"chatClosingTags"`
	OfflineMessageChannelName   string   `json:"offlineMessageChannelName"`
	FallbackForwardDepartment   string   `json:"fallbackForwardDepartment"`
	Type                        string   `json:"type"`
	BusinessHourID              *string  `json:"businessHourId"`
	ParentID                    *string  `json:"parentId"`
	Ancestors                   []string `json:"ancestors"`
}

// Validate returns field errors keyed by json name.
func (r *DepartmentRequest) Validate() map[string]any {
	details := map[string]any{}
	if strings.TrimSpace(r.Name) == "" {
		details["name"] = "required"
	}
	if r.RequestTagBeforeClosingChat && len(r.ChatClosingTags) == 0 {
		details["chatClosingTags"] = "required when requestTagBeforeClosingChat is set"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// ToData converts the request to the domain write model.
func (r *DepartmentRequest) ToData() domain.DepartmentData {
	return domain.DepartmentData{
		Name:                        strings.TrimSpace(r.Name),
		Enabled:                     r.Enabled,
		Description:                 r.Description,
		Email:                       r.Email,
		ShowOnRegistration:          r.ShowOnRegistration,
		ShowOnOfflineForm:           r.ShowOnOfflineForm,
		RequestTagBeforeClosingChat: r.RequestTagBeforeClosingChat,
		ChatClosingTags:             r.ChatClosingTags,
		OfflineMessageChannelName:   r.OfflineMessageChannelName,
		FallbackForwardDepartment:   r.FallbackForwardDepartment,
		Type:                        r.Type,
		BusinessHourID:              r.BusinessHourID,
		ParentID:                    r.ParentID,
		Ancestors:                   r.Ancestors,
	}
}

// DepartmentPatchRequest carries a partial update.
type DepartmentPatchRequest struct {
	Name           *string  `json:"name"`
	Enabled        *bool    `json:"enabled"`
	Description    *string  `json:"description"`
	Email          *string  `json:"email"`
	BusinessHourID *string  `json:"businessHourId"`
	ParentID       *string  `json:"parentId"`
	Ancestors      []string `json:"ancestors"`
}

// ToPatch converts the request to the domain patch.
func (r *DepartmentPatchRequest) ToPatch() domain.DepartmentPatch {
	return domain.DepartmentPatch{
		Name:           r.Name,
		Enabled:        r.Enabled,
		Description:    r.Description,
		Email:          r.Email,
		BusinessHourID: r.BusinessHourID,
		ParentID:       r.ParentID,
		Ancestors:      r.Ancestors,
	}
}

// NumAgentsRequest overwrites the denormalized agent counter.
type NumAgentsRequest struct {
	NumAgents *int `json:"numAgents"`
}

// DepartmentResponse is the API view of a department.
type DepartmentResponse struct {
	ID                          string    `json:"id"`
	Name                        string    `json:"name"`
	Enabled                     bool      `json:"enabled"`
	Description                 string    `json:"description"`
	Email                       string    `json:"email"`
	ShowOnRegistration          bool      `json:"showOnRegistration"`
	ShowOnOfflineForm           bool      `json:"showOnOfflineForm"`
	RequestTagBeforeClosingChat bool      `json:"requestTagBeforeClosingChat"`
	ChatClosingTags             []string  `json:"chatClosingTags"`
	OfflineMessageChannelName   string    `json:"offlineMessageChannelName"`
	FallbackForwardDepartment   string    `json:"fallbackForwardDepartment"`
	Type                        string    `json:"type"`
	BusinessHourID              *string   `json:"businessHourId"`
	ParentID                    *string   `json:"parentId"`
	Ancestors                   []string  `json:"ancestors"`
	NumAgents                   int       `json:"numAgents"`
	UpdatedAt                   time.Time `json:"updatedAt"`
}

// NewDepartmentResponse maps a department. A nil department maps to nil.
func NewDepartmentResponse(d *domain.Department) *DepartmentResponse {
	if d == nil {
		return nil
	}
	return &DepartmentResponse{
		ID:                          d.ID,
		Name:                        d.Name,
		Enabled:                     d.Enabled,
		Description:                 d.Description,
		Email:                       d.Email,
		ShowOnRegistration:          d.ShowOnRegistration,
		ShowOnOfflineForm:           d.ShowOnOfflineForm,
		RequestTagBeforeClosingChat: d.RequestTagBeforeClosingChat,
		ChatClosingTags:             nonNilStrings(d.ChatClosingTags),
		OfflineMessageChannelName:   d.OfflineMessageChannelName,
		FallbackForwardDepartment:   d.FallbackForwardDepartment,
		Type:                        d.Type,
		BusinessHourID:              d.BusinessHourID,
		ParentID:                    d.ParentID,
		Ancestors:                   nonNilStrings(d.Ancestors),
		NumAgents:                   d.NumAgents,
		UpdatedAt:                   d.UpdatedAt,
	}
}

// NewDepartmentListResponse maps a list of departments.
func NewDepartmentListResponse(list []domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(list))
	for i := range list {
		out = append(out, *NewDepartmentResponse(&list[i]))
	}
	return out
}

// DepartmentAgentResponse is one assignment of an agent to a department.
type DepartmentAgentResponse struct {
	AgentID           string    `json:"agentId"`
	DepartmentID      string    `json:"departmentId"`
	Username          string    `json:"username"`
	DepartmentEnabled bool      `json:"departmentEnabled"`
	Count             int       `json:"count"`
	Order             int       `json:"order"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewDepartmentAgentListResponse maps assignments.
func NewDepartmentAgentListResponse(list []domain.DepartmentAgent) []DepartmentAgentResponse {
	out := make([]DepartmentAgentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, DepartmentAgentResponse{
			AgentID:           a.AgentID,
			DepartmentID:      a.DepartmentID,
			Username:          a.Username,
			DepartmentEnabled: a.DepartmentEnabled,
			Count:             a.Count,
			Order:             a.Order,
			UpdatedAt:         a.UpdatedAt,
		})
	}
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
