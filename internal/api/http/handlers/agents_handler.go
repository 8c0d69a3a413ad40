package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/livechat-service/internal/api/dto"
	"github.com/spec-kit/livechat-service/internal/auth"
	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/repository"
	"github.com/spec-kit/livechat-service/internal/service"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

// AgentsHandler exposes agent management and rosters.
type AgentsHandler struct {
	agents      *service.AgentService
	departments *service.DepartmentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService, departments *service.DepartmentService) *AgentsHandler {
	return &AgentsHandler{agents: agents, departments: departments}
}

// Create POST /agents.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.CreateAgent(c.UserContext(), service.CreateAgentInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// List GET /agents.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	filter := repository.AgentFilter{Active: parseBool(c.Query("active"))}
	if role := c.Query("role"); role != "" {
		r := domain.AgentRole(role)
		if !r.Valid() {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": role})
		}
		filter.Role = &r
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	agents, err := h.agents.ListAgents(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.NewAgentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /agents/:id.
func (h *AgentsHandler) Get(c *fiber.Ctx) error {
	agent, err := h.agents.GetAgent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// Departments GET /agents/:id/departments. Agents may read their own roster.
func (h *AgentsHandler) Departments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	agentID := c.Params("id")
	if principal.Agent.ID != agentID && !auth.CanManageDepartments(principal.Role()) {
		return apperrors.NewForbidden("insufficient role")
	}
	list, err := h.departments.AgentDepartments(c.UserContext(), agentID)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentAgentListResponse(list)})
}

// SaveDepartments PUT /agents/:id/departments.
func (h *AgentsHandler) SaveDepartments(c *fiber.Ctx) error {
	var req dto.SaveAgentDepartmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DepartmentIDs == nil {
		return apperrors.NewValidationError("departmentIds required", nil)
	}
	result, err := h.agents.SaveAgentDepartments(c.UserContext(), c.Params("id"), req.DepartmentIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
