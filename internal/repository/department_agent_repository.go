package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/livechat-service/internal/domain"
)

const departmentAgentColumns = `agent_id, department_id, username, department_enabled, chat_count, sort_order, updated_at`

type departmentAgentRepository struct {
	db DBTX
}

// NewDepartmentAgentRepository builds the assignment repository.
func NewDepartmentAgentRepository(db DBTX) DepartmentAgentRepository {
	return &departmentAgentRepository{db: db}
}

func (r *departmentAgentRepository) ListByAgentID(ctx context.Context, agentID string) ([]domain.DepartmentAgent, error) {
	query := "SELECT " + departmentAgentColumns + " FROM livechat_department_agents WHERE agent_id=$1"
	return r.list(ctx, query, agentID)
}

func (r *departmentAgentRepository) ListByDepartmentID(ctx context.Context, departmentID string) ([]domain.DepartmentAgent, error) {
	query := "SELECT " + departmentAgentColumns + ` FROM livechat_department_agents
        WHERE department_id=$1 ORDER BY sort_order, username`
	return r.list(ctx, query, departmentID)
}

func (r *departmentAgentRepository) list(ctx context.Context, query string, arg string) ([]domain.DepartmentAgent, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list department agents: %w", err)
	}
	defer rows.Close()

	result := []domain.DepartmentAgent{}
	for rows.Next() {
		var a domain.DepartmentAgent
		if err := rows.Scan(&a.AgentID, &a.DepartmentID, &a.Username, &a.DepartmentEnabled, &a.Count, &a.Order, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *departmentAgentRepository) CountByDepartment(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT department_id, COUNT(*) FROM livechat_department_agents GROUP BY department_id`)
	if err != nil {
		return nil, fmt.Errorf("count department agents: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			departmentID string
			count        int
		)
		if err := rows.Scan(&departmentID, &count); err != nil {
			return nil, err
		}
		counts[departmentID] = count
	}
	return counts, rows.Err()
}

func (r *departmentAgentRepository) CountByDepartmentID(ctx context.Context, departmentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM livechat_department_agents WHERE department_id=$1`, departmentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count agents of %s: %w", departmentID, err)
	}
	return count, nil
}

// Save relies on xmax being zero only for freshly inserted tuples.
func (r *departmentAgentRepository) Save(ctx context.Context, a *domain.DepartmentAgent) (bool, error) {
	const query = `
        INSERT INTO livechat_department_agents (agent_id, department_id, username, department_enabled, chat_count, sort_order)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (agent_id, department_id) DO UPDATE SET
            username=EXCLUDED.username,
            department_enabled=EXCLUDED.department_enabled,
            chat_count=EXCLUDED.chat_count,
            sort_order=EXCLUDED.sort_order,
            updated_at=NOW()
        RETURNING updated_at, (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRow(ctx, query,
		a.AgentID,
		a.DepartmentID,
		a.Username,
		a.DepartmentEnabled,
		a.Count,
		a.Order,
	).Scan(&a.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("save department agent: %w", err)
	}
	return inserted, nil
}

func (r *departmentAgentRepository) RemoveByDepartmentIDAndAgentID(ctx context.Context, departmentID, agentID string) (bool, error) {
	const query = `DELETE FROM livechat_department_agents WHERE department_id=$1 AND agent_id=$2`
	cmd, err := r.db.Exec(ctx, query, departmentID, agentID)
	if err != nil {
		return false, fmt.Errorf("remove department agent: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *departmentAgentRepository) SetDepartmentEnabledByDepartmentID(ctx context.Context, departmentID string, enabled bool) (int64, error) {
	const query = `
        UPDATE livechat_department_agents SET department_enabled=$1, updated_at=NOW()
        WHERE department_id=$2`
	cmd, err := r.db.Exec(ctx, query, enabled, departmentID)
	if err != nil {
		return 0, fmt.Errorf("set department enabled: %w", err)
	}
	return cmd.RowsAffected(), nil
}
