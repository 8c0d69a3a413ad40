package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/repository"
)

type agentRow struct {
	seq   uint64
	agent domain.Agent
}

type agents struct {
	state *state
	gate  gate
}

func (r *agents) Create(_ context.Context, agent *domain.Agent) error {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if _, exists := r.state.agents[agent.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, row := range r.state.agents {
		if row.agent.Username == agent.Username {
			return repository.ErrDuplicate
		}
	}
	now := r.state.now()
	agent.CreatedAt = now
	agent.UpdatedAt = now
	r.state.agents[agent.ID] = &agentRow{seq: r.state.next(), agent: *agent}
	return nil
}

func (r *agents) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	row, ok := r.state.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	agent := row.agent
	return &agent, nil
}

func (r *agents) GetByUsername(_ context.Context, username string) (*domain.Agent, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	for _, row := range r.state.agents {
		if row.agent.Username == username {
			agent := row.agent
			return &agent, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *agents) List(_ context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	release := r.gate.read()
	r.state.mu.RLock()
	result := []domain.Agent{}
	for _, row := range r.state.agents {
		if filter.Role != nil && row.agent.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && row.agent.Active != *filter.Active {
			continue
		}
		result = append(result, row.agent)
	}
	r.state.mu.RUnlock()
	release()

	sortAgents(result)
	limit, offset := filter.Page()
	if offset >= len(result) {
		return []domain.Agent{}, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func sortAgents(list []domain.Agent) {
	slices.SortFunc(list, func(a, b domain.Agent) int { return strings.Compare(a.Username, b.Username) })
}
