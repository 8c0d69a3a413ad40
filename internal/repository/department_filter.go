package repository

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spec-kit/livechat-service/internal/domain"
)

// Department sort keys.
const (
	SortByName      = "name"
	SortByNumAgents = "num_agents"
	SortByUpdatedAt = "updated_at"
)

// DepartmentFilter selects departments. Zero values do not constrain.
type DepartmentFilter struct {
	IDs     []string
	Enabled *bool
	// WithAgents keeps departments that have at least one agent.
	WithAgents bool
	// UnitIDs, when non-nil, keeps departments whose parent unit is one of
	// the given ids. An empty non-nil slice matches nothing.
	UnitIDs        []string
	BusinessHourID *string
	SortBy         string
	SortDesc       bool
	Limit          int
	Offset         int
}

// Matches evaluates the filter predicate against a single department.
func (f DepartmentFilter) Matches(d *domain.Department) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, d.ID) {
		return false
	}
	if f.Enabled != nil && d.Enabled != *f.Enabled {
		return false
	}
	if f.WithAgents && d.NumAgents <= 0 {
		return false
	}
	if f.UnitIDs != nil {
		if d.ParentID == nil || !slices.Contains(f.UnitIDs, *d.ParentID) {
			return false
		}
	}
	if f.BusinessHourID != nil {
		if d.BusinessHourID == nil || *d.BusinessHourID != *f.BusinessHourID {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages an in-memory slice the same way the SQL
// query does.
func (f DepartmentFilter) Apply(all []domain.Department) []domain.Department {
	result := make([]domain.Department, 0, len(all))
	for i := range all {
		if f.Matches(&all[i]) {
			result = append(result, all[i])
		}
	}
	if f.SortBy != "" {
		sort.SliceStable(result, func(i, j int) bool {
			if f.SortDesc {
				return departmentLess(f.SortBy, &result[j], &result[i])
			}
			return departmentLess(f.SortBy, &result[i], &result[j])
		})
	}
	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return []domain.Department{}
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result
}

func departmentLess(key string, a, b *domain.Department) bool {
	switch key {
	case SortByNumAgents:
		return a.NumAgents < b.NumAgents
	case SortByUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.Name < b.Name
	}
}

// ValidSortKey reports whether key can be used in DepartmentFilter.SortBy.
func ValidSortKey(key string) bool {
	switch key {
	case "", SortByName, SortByNumAgents, SortByUpdatedAt:
		return true
	}
	return false
}

func buildDepartmentQuery(filter DepartmentFilter) (string, []any) {
	query := "SELECT " + departmentColumns + " FROM livechat_departments"
	args := []any{}
	clauses := []string{}

	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		clauses = append(clauses, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.Enabled != nil {
		args = append(args, *filter.Enabled)
		clauses = append(clauses, fmt.Sprintf("enabled=$%d", len(args)))
	}
	if filter.WithAgents {
		clauses = append(clauses, "num_agents > 0")
	}
	if filter.UnitIDs != nil {
		args = append(args, filter.UnitIDs)
		clauses = append(clauses, fmt.Sprintf("parent_id IS NOT NULL AND parent_id = ANY($%d)", len(args)))
	}
	if filter.BusinessHourID != nil {
		args = append(args, *filter.BusinessHourID)
		clauses = append(clauses, fmt.Sprintf("business_hour_id=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	if filter.SortBy != "" && ValidSortKey(filter.SortBy) {
		direction := "ASC"
		if filter.SortDesc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", filter.SortBy, direction)
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}
	return query, args
}
