package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/livechat-service/internal/api/dto"
	"github.com/spec-kit/livechat-service/internal/repository"
	"github.com/spec-kit/livechat-service/internal/service"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

// DepartmentsHandler exposes the department registry.
type DepartmentsHandler struct {
	service *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{service: departmentService}
}

// List GET /departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	opts, err := parseFindOptions(c)
	if err != nil {
		return err
	}
	filter := repository.DepartmentFilter{
		IDs:        splitList(c.Query("ids")),
		Enabled:    parseBool(c.Query("enabled")),
		WithAgents: c.QueryBool("with_agents"),
		SortBy:     opts.SortBy,
		SortDesc:   opts.SortDesc,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	}
	if c.Query("unit_ids") != "" {
		filter.UnitIDs = splitList(c.Query("unit_ids"))
	}
	if bh := c.Query("business_hour_id"); bh != "" {
		filter.BusinessHourID = &bh
	}
	list, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentListResponse(list)})
}

// EnabledWithAgents GET /departments/enabled-with-agents.
func (h *DepartmentsHandler) EnabledWithAgents(c *fiber.Ctx) error {
	opts, err := parseFindOptions(c)
	if err != nil {
		return err
	}
	list, err := h.service.FindEnabledWithAgentsAndBusinessUnit(c.UserContext(), c.Query("unit_id"), opts)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentListResponse(list)})
}

// ByUnits GET /departments/by-units?unit_ids=a,b[&active=true].
func (h *DepartmentsHandler) ByUnits(c *fiber.Ctx) error {
	opts, err := parseFindOptions(c)
	if err != nil {
		return err
	}
	unitIDs := splitList(c.Query("unit_ids"))
	find := h.service.FindByUnitIDs
	if c.QueryBool("active") {
		find = h.service.FindActiveByUnitIDs
	}
	list, err := find(c.UserContext(), unitIDs, opts)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentListResponse(list)})
}

// Lookup GET /departments/lookup/:idOrName.
func (h *DepartmentsHandler) Lookup(c *fiber.Ctx) error {
	dept, err := h.service.FindOneByIDOrName(c.UserContext(), c.Params("idOrName"))
	if err != nil {
		return serviceError(err)
	}
	if dept == nil {
		return apperrors.NewNotFound("department", map[string]any{"id_or_name": c.Params("idOrName")})
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// Get GET /departments/:id.
func (h *DepartmentsHandler) Get(c *fiber.Ctx) error {
	dept, err := h.service.FindOneByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	if dept == nil {
		return apperrors.NewNotFound("department", map[string]any{"department_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// Agents GET /departments/:id/agents.
func (h *DepartmentsHandler) Agents(c *fiber.Ctx) error {
	roster, err := h.service.DepartmentAgents(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentAgentListResponse(roster)})
}

// Create POST /departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	return h.save(c, "", http.StatusCreated)
}

// Save PUT /departments/:id creates or fully replaces the department.
func (h *DepartmentsHandler) Save(c *fiber.Ctx) error {
	return h.save(c, c.Params("id"), http.StatusOK)
}

func (h *DepartmentsHandler) save(c *fiber.Ctx, id string, status int) error {
	var req dto.DepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := req.Validate(); details != nil {
		return apperrors.NewValidationError("invalid department", details)
	}
	dept, err := h.service.CreateOrUpdateDepartment(c.UserContext(), id, req.ToData())
	if err != nil {
		return serviceError(err)
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// Patch PATCH /departments/:id.
func (h *DepartmentsHandler) Patch(c *fiber.Ctx) error {
	var req dto.DepartmentPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	patch := req.ToPatch()
	if patch.IsEmpty() {
		return apperrors.NewValidationError("no fields to update", nil)
	}
	if patch.Name != nil && *patch.Name == "" {
		return apperrors.NewValidationError("invalid department", map[string]any{"name": "required"})
	}
	found, err := h.service.UpdateByID(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return serviceError(err)
	}
	if !found {
		return apperrors.NewNotFound("department", map[string]any{"department_id": c.Params("id")})
	}
	return h.Get(c)
}

// SetNumAgents PUT /departments/:id/num-agents.
func (h *DepartmentsHandler) SetNumAgents(c *fiber.Ctx) error {
	var req dto.NumAgentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.NumAgents == nil || *req.NumAgents < 0 {
		return apperrors.NewValidationError("numAgents must be a non-negative integer", nil)
	}
	found, err := h.service.UpdateNumAgentsByID(c.UserContext(), c.Params("id"), *req.NumAgents)
	if err != nil {
		return serviceError(err)
	}
	if !found {
		return apperrors.NewNotFound("department", map[string]any{"department_id": c.Params("id")})
	}
	return c.SendStatus(http.StatusNoContent)
}

// Delete DELETE /departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	found, err := h.service.RemoveByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	if !found {
		return apperrors.NewNotFound("department", map[string]any{"department_id": c.Params("id")})
	}
	return c.SendStatus(http.StatusNoContent)
}

// Reconcile POST /departments/reconcile.
func (h *DepartmentsHandler) Reconcile(c *fiber.Ctx) error {
	corrected, err := h.service.ReconcileNumAgents(c.UserContext())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"corrected": corrected}})
}

func parseFindOptions(c *fiber.Ctx) (service.FindOptions, error) {
	sortBy := c.Query("sort")
	if !repository.ValidSortKey(sortBy) {
		return service.FindOptions{}, apperrors.NewValidationError("invalid sort key", map[string]any{"sort": sortBy})
	}
	opts := service.FindOptions{SortBy: sortBy, SortDesc: c.Query("order") == "desc"}
	if c.Query("page_size") != "" || c.Query("page") != "" {
		page := parseInt(c.Query("page"), 1)
		pageSize := parseInt(c.Query("page_size"), 50)
		opts.Limit = pageSize
		opts.Offset = (page - 1) * pageSize
	}
	return opts, nil
}
