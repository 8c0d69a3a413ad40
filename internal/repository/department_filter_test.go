package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/livechat-service/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestBuildDepartmentQueryEnabledWithAgents(t *testing.T) {
	query, args := buildDepartmentQuery(DepartmentFilter{Enabled: ptr(true), WithAgents: true})

	assert.Contains(t, query, "WHERE enabled=$1 AND num_agents > 0")
	assert.Equal(t, []any{true}, args)
	assert.NotContains(t, query, "ORDER BY")
}

func TestBuildDepartmentQueryUnitsSortAndPaging(t *testing.T) {
	query, args := buildDepartmentQuery(DepartmentFilter{
		UnitIDs:  []string{"u1", "u2"},
		SortBy:   SortByName,
		SortDesc: true,
		Limit:    10,
		Offset:   20,
	})

	assert.Contains(t, query, "parent_id IS NOT NULL AND parent_id = ANY($1)")
	assert.True(t, strings.HasSuffix(query, "ORDER BY name DESC LIMIT 10 OFFSET 20"))
	assert.Equal(t, []any{[]string{"u1", "u2"}}, args)
}

func TestBuildDepartmentQueryIgnoresUnknownSort(t *testing.T) {
	query, _ := buildDepartmentQuery(DepartmentFilter{SortBy: "name; DROP TABLE x"})
	assert.NotContains(t, query, "ORDER BY")
}

func TestDepartmentFilterMatches(t *testing.T) {
	unit := "unit-1"
	dept := domain.Department{ID: "d1", Name: "Sales", Enabled: true, NumAgents: 2, ParentID: &unit}

	assert.True(t, DepartmentFilter{}.Matches(&dept))
	assert.True(t, DepartmentFilter{Enabled: ptr(true), WithAgents: true, UnitIDs: []string{unit}}.Matches(&dept))
	assert.False(t, DepartmentFilter{UnitIDs: []string{}}.Matches(&dept))
	assert.False(t, DepartmentFilter{Enabled: ptr(false)}.Matches(&dept))

	dept.NumAgents = 0
	assert.False(t, DepartmentFilter{WithAgents: true}.Matches(&dept))

	dept.ParentID = nil
	assert.False(t, DepartmentFilter{UnitIDs: []string{unit}}.Matches(&dept))
}

func TestDepartmentFilterApplySortsAndPages(t *testing.T) {
	now := time.Now()
	all := []domain.Department{
		{ID: "a", Name: "Billing", NumAgents: 3, UpdatedAt: now},
		{ID: "b", Name: "Accounts", NumAgents: 1, UpdatedAt: now.Add(time.Second)},
		{ID: "c", Name: "Claims", NumAgents: 2, UpdatedAt: now.Add(2 * time.Second)},
	}

	byName := DepartmentFilter{SortBy: SortByName}.Apply(all)
	assert.Equal(t, []string{"b", "a", "c"}, ids(byName))

	byAgentsDesc := DepartmentFilter{SortBy: SortByNumAgents, SortDesc: true, Limit: 2}.Apply(all)
	assert.Equal(t, []string{"a", "c"}, ids(byAgentsDesc))

	assert.Empty(t, DepartmentFilter{Offset: 5}.Apply(all))
	assert.Equal(t, []string{"a", "b", "c"}, ids(DepartmentFilter{}.Apply(all)))
}

func ids(list []domain.Department) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, d.ID)
	}
	return out
}
