package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/spec-kit/livechat-service/internal/domain"
)

type assignmentRow struct {
	seq        uint64
	assignment domain.DepartmentAgent
}

type departmentAgents struct {
	state *state
	gate  gate
}

func (r *departmentAgents) ListByAgentID(_ context.Context, agentID string) ([]domain.DepartmentAgent, error) {
	return r.list(func(a *domain.DepartmentAgent) bool { return a.AgentID == agentID }), nil
}

func (r *departmentAgents) ListByDepartmentID(_ context.Context, departmentID string) ([]domain.DepartmentAgent, error) {
	result := r.list(func(a *domain.DepartmentAgent) bool { return a.DepartmentID == departmentID })
	sortAssignments(result)
	return result, nil
}

func (r *departmentAgents) list(keep func(*domain.DepartmentAgent) bool) []domain.DepartmentAgent {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	rows := []*assignmentRow{}
	for _, row := range r.state.assignments {
		if keep(&row.assignment) {
			rows = append(rows, row)
		}
	}
	rows = sortedBySeq(rows, func(row *assignmentRow) uint64 { return row.seq })
	result := make([]domain.DepartmentAgent, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.assignment)
	}
	return result
}

func (r *departmentAgents) CountByDepartment(_ context.Context) (map[string]int, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	counts := map[string]int{}
	for key := range r.state.assignments {
		counts[key.departmentID]++
	}
	return counts, nil
}

func (r *departmentAgents) CountByDepartmentID(_ context.Context, departmentID string) (int, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	count := 0
	for key := range r.state.assignments {
		if key.departmentID == departmentID {
			count++
		}
	}
	return count, nil
}

func (r *departmentAgents) Save(_ context.Context, a *domain.DepartmentAgent) (bool, error) {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	a.UpdatedAt = r.state.now()
	key := assignmentKey{agentID: a.AgentID, departmentID: a.DepartmentID}
	if row, ok := r.state.assignments[key]; ok {
		row.assignment = *a
		return false, nil
	}
	r.state.assignments[key] = &assignmentRow{seq: r.state.next(), assignment: *a}
	return true, nil
}

func (r *departmentAgents) RemoveByDepartmentIDAndAgentID(_ context.Context, departmentID, agentID string) (bool, error) {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	key := assignmentKey{agentID: agentID, departmentID: departmentID}
	if _, ok := r.state.assignments[key]; !ok {
		return false, nil
	}
	delete(r.state.assignments, key)
	return true, nil
}

func (r *departmentAgents) SetDepartmentEnabledByDepartmentID(_ context.Context, departmentID string, enabled bool) (int64, error) {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var affected int64
	for key, row := range r.state.assignments {
		if key.departmentID != departmentID {
			continue
		}
		row.assignment.DepartmentEnabled = enabled
		row.assignment.UpdatedAt = r.state.now()
		affected++
	}
	return affected, nil
}

func sortAssignments(list []domain.DepartmentAgent) {
	slices.SortStableFunc(list, func(a, b domain.DepartmentAgent) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.Username, b.Username)
	})
}
