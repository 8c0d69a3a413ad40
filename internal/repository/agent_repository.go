package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/livechat-service/internal/domain"
)

const agentColumns = `id, username, name, email, password_hash, role, active_flag, created_at, updated_at`

type agentRepository struct {
	db DBTX
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(db DBTX) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO livechat_agents (id, username, name, email, password_hash, role, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		agent.ID,
		agent.Username,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Active,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)
	if err != nil {
		return duplicate(fmt.Errorf("insert agent: %w", err))
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := "SELECT " + agentColumns + " FROM livechat_agents WHERE id=$1"
	agent, err := scanAgent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return agent, nil
}

func (r *agentRepository) GetByUsername(ctx context.Context, username string) (*domain.Agent, error) {
	query := "SELECT " + agentColumns + " FROM livechat_agents WHERE username=$1"
	agent, err := scanAgent(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, notFound(err)
	}
	return agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := "SELECT " + agentColumns + " FROM livechat_agents"
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY username"
	limit, offset := filter.page()
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	result := []domain.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (f AgentFilter) page() (int, int) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page exposes the normalized limit and offset for non-SQL stores.
func (f AgentFilter) Page() (limit, offset int) {
	return f.page()
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Username,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&agent.Active,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
