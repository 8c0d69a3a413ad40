package commands

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/livechat-service/internal/api/dto"
	"github.com/spec-kit/livechat-service/internal/service"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

// Livechat method names.
const (
	MethodSaveDepartment       = "livechat:saveDepartment"
	MethodRemoveDepartment     = "livechat:removeDepartment"
	MethodSaveAgentDepartments = "livechat:saveAgentDepartments"
	MethodGetDepartment        = "livechat:getDepartment"
)

// DepartmentWithAgents is the result of livechat:getDepartment.
type DepartmentWithAgents struct {
	Department *dto.DepartmentResponse       `json:"department"`
	Agents     []dto.DepartmentAgentResponse `json:"agents"`
}

// RegisterLivechatMethods binds the department methods to bus.
func RegisterLivechatMethods(bus *LocalBus, departments *service.DepartmentService, agents *service.AgentService) {
	bus.Register(MethodSaveDepartment, func(ctx context.Context, params []json.RawMessage) (any, error) {
		var id string
		if _, err := Param(params, 0, &id); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		var req dto.DepartmentRequest
		ok, err := Param(params, 1, &req)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		if !ok {
			return nil, apperrors.NewValidationError("department data required", nil)
		}
		if details := req.Validate(); details != nil {
			return nil, apperrors.NewValidationError("invalid department", details)
		}
		dept, err := departments.CreateOrUpdateDepartment(ctx, id, req.ToData())
		if err != nil {
			return nil, err
		}
		return dto.NewDepartmentResponse(dept), nil
	})

	bus.Register(MethodRemoveDepartment, func(ctx context.Context, params []json.RawMessage) (any, error) {
		id, err := requiredID(params, 0, "department id")
		if err != nil {
			return nil, err
		}
		removed, err := departments.RemoveByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !removed {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": id})
		}
		return true, nil
	})

	bus.Register(MethodSaveAgentDepartments, func(ctx context.Context, params []json.RawMessage) (any, error) {
		agentID, err := requiredID(params, 0, "agent id")
		if err != nil {
			return nil, err
		}
		var ids []string
		if _, err := Param(params, 1, &ids); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		return agents.SaveAgentDepartments(ctx, agentID, ids)
	})

	bus.Register(MethodGetDepartment, func(ctx context.Context, params []json.RawMessage) (any, error) {
		id, err := requiredID(params, 0, "department id")
		if err != nil {
			return nil, err
		}
		dept, err := departments.FindOneByID(ctx, id)
		if err != nil || dept == nil {
			return nil, err
		}
		roster, err := departments.DepartmentAgents(ctx, id)
		if err != nil {
			return nil, err
		}
		return DepartmentWithAgents{
			Department: dto.NewDepartmentResponse(dept),
			Agents:     dto.NewDepartmentAgentListResponse(roster),
		}, nil
	})
}

func requiredID(params []json.RawMessage, i int, name string) (string, error) {
	var id string
	ok, err := Param(params, i, &id)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error(), nil)
	}
	if !ok || id == "" {
		return "", apperrors.NewValidationError(name+" required", nil)
	}
	return id, nil
}
