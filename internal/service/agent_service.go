package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/auth"
	"github.com/spec-kit/livechat-service/internal/config"
	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/repository"
	apperrors "github.com/spec-kit/livechat-service/pkg/util/errorutil"
)

// AgentService manages livechat agents and their department rosters.
type AgentService struct {
	agents      repository.AgentRepository
	departments *DepartmentService
	bcryptCost  int
	logger      *zap.Logger
}

// CreateAgentInput carries the fields of a new agent.
type CreateAgentInput struct {
	Username string
	Name     string
	Email    string
	Password string
	Role     domain.AgentRole
}

// NewAgentService constructs the service.
func NewAgentService(cfg config.AuthConfig, agents repository.AgentRepository, departments *DepartmentService, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		agents:      agents,
		departments: departments,
		bcryptCost:  cfg.BcryptCost,
		logger:      logger,
	}
}

// CreateAgent validates and stores a new agent.
func (s *AgentService) CreateAgent(ctx context.Context, in CreateAgentInput) (*domain.Agent, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Role == "" {
		in.Role = domain.AgentRoleAgent
	}

	details := map[string]any{}
	if in.Username == "" {
		details["username"] = "required"
	}
	if len(in.Password) < 8 {
		details["password"] = "must be at least 8 characters"
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			details["email"] = "invalid"
		}
	}
	if !in.Role.Valid() {
		details["role"] = "unknown role"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid agent", details)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	agent := &domain.Agent{
		Username:     in.Username,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username already taken", map[string]any{"username": in.Username})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("agent created", zap.String("agent_id", agent.ID), zap.String("role", string(agent.Role)))
	return agent, nil
}

// GetAgent loads an agent by id.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// ListAgents returns agents matching filter.
func (s *AgentService) ListAgents(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// SaveAgentDepartments replaces the department roster of an existing agent.
func (s *AgentService) SaveAgentDepartments(ctx context.Context, agentID string, departmentIDs []string) (*SaveDepartmentsResult, error) {
	agent, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	result, err := s.departments.SaveDepartmentsByAgent(ctx, agent.Ref(), departmentIDs)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, apperrors.NewNotFound("department", map[string]any{"reason": err.Error()})
		}
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// EnsureBootstrapAdmin creates an admin agent with the given credentials
// unless the username is already taken. Empty credentials are a no-op.
func (s *AgentService) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.agents.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err = s.CreateAgent(ctx, CreateAgentInput{
		Username: username,
		Name:     username,
		Password: password,
		Role:     domain.AgentRoleAdmin,
	})
	return err
}
