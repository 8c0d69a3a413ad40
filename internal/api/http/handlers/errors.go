package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spec-kit/livechat-service/internal/commands"
	"github.com/spec-kit/livechat-service/internal/repository"
	"github.com/spec-kit/livechat-service/internal/service"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

// serviceError maps sentinel errors from lower layers to API errors.
func serviceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrDepartmentNotFound):
		return apperrors.NewNotFound("department", map[string]any{"reason": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("resource", nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("resource already exists", nil)
	case errors.Is(err, commands.ErrUnknownMethod):
		return apperrors.NewUnknownMethod(strings.TrimPrefix(err.Error(), commands.ErrUnknownMethod.Error()+": "))
	}
	return apperrors.MapError(err)
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) *bool {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
