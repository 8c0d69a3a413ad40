package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/livechat-service/internal/commands"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

// MethodsHandler invokes named methods on the command bus.
type MethodsHandler struct {
	bus *commands.LocalBus
}

// NewMethodsHandler constructs handler.
func NewMethodsHandler(bus *commands.LocalBus) *MethodsHandler {
	return &MethodsHandler{bus: bus}
}

type invokeRequest struct {
	Params []json.RawMessage `json:"params"`
}

// List GET /methods.
func (h *MethodsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.bus.Methods()})
}

// Invoke POST /methods/:name with body {"params": [...]}.
func (h *MethodsHandler) Invoke(c *fiber.Ctx) error {
	var req invokeRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	result, err := h.bus.Invoke(c.UserContext(), c.Params("name"), req.Params...)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"data": result})
}
