package domain

import "time"

// Department is a livechat support department that agents are assigned to.
type Department struct {
	ID                          string
	Name                        string
	Enabled                     bool
	Description                 string
	Email                       string
	ShowOnRegistration          bool
	ShowOnOfflineForm           bool
	RequestTagBeforeClosingChat bool
	ChatClosingTags             []string
	OfflineMessageChannelName   string
	FallbackForwardDepartment   string
	Type                        string
	BusinessHourID              *string
	ParentID                    *string
	Ancestors                   []string
	NumAgents                   int
	UpdatedAt                   time.Time
}

// DepartmentData carries every writable department field except the
// denormalized agent counter.
type DepartmentData struct {
	Name                        string
	Enabled                     bool
	Description                 string
	Email                       string
	ShowOnRegistration          bool
	ShowOnOfflineForm           bool
	RequestTagBeforeClosingChat bool
	ChatClosingTags             []string
	OfflineMessageChannelName   string
	FallbackForwardDepartment   string
	Type                        string
	BusinessHourID              *string
	ParentID                    *string
	Ancestors                   []string
}

// Data returns the writable part of the department.
func (d *Department) Data() DepartmentData {
	return DepartmentData{
		Name:                        d.Name,
		Enabled:                     d.Enabled,
		Description:                 d.Description,
		Email:                       d.Email,
		ShowOnRegistration:          d.ShowOnRegistration,
		ShowOnOfflineForm:           d.ShowOnOfflineForm,
		RequestTagBeforeClosingChat: d.RequestTagBeforeClosingChat,
		ChatClosingTags:             d.ChatClosingTags,
		OfflineMessageChannelName:   d.OfflineMessageChannelName,
		FallbackForwardDepartment:   d.FallbackForwardDepartment,
		Type:                        d.Type,
		BusinessHourID:              d.BusinessHourID,
		ParentID:                    d.ParentID,
		Ancestors:                   d.Ancestors,
	}
}

// Apply overwrites every writable field with data. NumAgents is kept.
func (d *Department) Apply(data DepartmentData) {
	d.Name = data.Name
	d.Enabled = data.Enabled
	d.Description = data.Description
	d.Email = data.Email
	d.ShowOnRegistration = data.ShowOnRegistration
	d.ShowOnOfflineForm = data.ShowOnOfflineForm
	d.RequestTagBeforeClosingChat = data.RequestTagBeforeClosingChat
	d.ChatClosingTags = data.ChatClosingTags
	d.OfflineMessageChannelName = data.OfflineMessageChannelName
	d.FallbackForwardDepartment = data.FallbackForwardDepartment
	d.Type = data.Type
	d.BusinessHourID = data.BusinessHourID
	d.ParentID = data.ParentID
	d.Ancestors = data.Ancestors
}

// DepartmentPatch is a partial update; nil fields are left untouched.
type DepartmentPatch struct {
	Name           *string
	Enabled        *bool
	Description    *string
	Email          *string
	BusinessHourID *string
	ParentID       *string
	Ancestors      []string
}

// IsEmpty reports whether the patch changes nothing.
func (p DepartmentPatch) IsEmpty() bool {
	return p.Name == nil && p.Enabled == nil && p.Description == nil && p.Email == nil &&
		p.BusinessHourID == nil && p.ParentID == nil && p.Ancestors == nil
}

// ApplyPatch sets the non-nil fields of p on d.
func (d *Department) ApplyPatch(p DepartmentPatch) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Enabled != nil {
		d.Enabled = *p.Enabled
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.BusinessHourID != nil {
		d.BusinessHourID = p.BusinessHourID
	}
	if p.ParentID != nil {
		d.ParentID = p.ParentID
	}
	if p.Ancestors != nil {
		d.Ancestors = p.Ancestors
	}
}
