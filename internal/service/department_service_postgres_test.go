package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/repository"
	"github.com/spec-kit/livechat-service/internal/repository/pgtest"
)

func newPostgresDepartmentService(t *testing.T) (*DepartmentService, *repository.PostgresStore) {
	t.Helper()
	store := repository.NewPostgresStore(pgtest.NewPool(t))
	return NewDepartmentService(DepartmentDependencies{Store: store}), store
}

func TestPostgresSavingSameSetTwiceChangesNothing(t *testing.T) {
	ctx := context.Background()
	svc, store := newPostgresDepartmentService(t)
	a, err := svc.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "A", Enabled: true})
	require.NoError(t, err)
	b, err := svc.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "B", Enabled: true})
	require.NoError(t, err)
	agent := domain.AgentRef{ID: "a1", Username: "ann"}

	first, err := svc.SaveDepartmentsByAgent(ctx, agent, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, first.Added)

	second, err := svc.SaveDepartmentsByAgent(ctx, agent, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Removed)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, second.Unchanged)

	for _, id := range []string{a.ID, b.ID} {
		dept, err := store.Departments().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, dept.NumAgents)
	}
}

func TestPostgresConcurrentRosterChangesKeepCountsConsistent(t *testing.T) {
	ctx := context.Background()
	svc, store := newPostgresDepartmentService(t)
	ids := make([]string, 0, 3)
	for _, name := range []string{"A", "B", "C"} {
		dept, err := svc.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: name, Enabled: true})
		require.NoError(t, err)
		ids = append(ids, dept.ID)
	}

	rosters := [][]string{{ids[0]}, {ids[0], ids[1]}, {ids[1], ids[2]}, {}, {ids[2]}}
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agent := domain.AgentRef{ID: fmt.Sprintf("agent-%d", i%4), Username: fmt.Sprintf("user%d", i%4)}
			for attempt := 0; attempt < 3; attempt++ {
				// Opposite lock orders can deadlock; Postgres aborts one side.
				if _, err := svc.SaveDepartmentsByAgent(ctx, agent, rosters[i%len(rosters)]); err == nil {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	counts, err := store.DepartmentAgents().CountByDepartment(ctx)
	require.NoError(t, err)
	for _, id := range ids {
		dept, err := store.Departments().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, counts[id], dept.NumAgents, dept.Name)
	}
}

func TestPostgresConcurrentEnableTogglesKeepAssignmentsInStep(t *testing.T) {
	ctx := context.Background()
	svc, store := newPostgresDepartmentService(t)
	dept, err := svc.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "Sales", Enabled: true})
	require.NoError(t, err)
	for _, agentID := range []string{"a1", "a2"} {
		_, err := svc.SaveDepartmentsByAgent(ctx, domain.AgentRef{ID: agentID, Username: agentID}, []string{dept.ID})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(enabled bool) {
			defer wg.Done()
			_, err := svc.CreateOrUpdateDepartment(ctx, dept.ID, domain.DepartmentData{Name: "Sales", Enabled: enabled})
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	got, err := store.Departments().GetByID(ctx, dept.ID)
	require.NoError(t, err)
	roster, err := store.DepartmentAgents().ListByDepartmentID(ctx, dept.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	for _, a := range roster {
		assert.Equal(t, got.Enabled, a.DepartmentEnabled, a.AgentID)
	}
}

func TestPostgresReconcileDoesNotOverwriteConcurrentAssignment(t *testing.T) {
	ctx := context.Background()
	svc, store := newPostgresDepartmentService(t)
	dept, err := svc.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "Sales", Enabled: true})
	require.NoError(t, err)
	_, err = svc.SaveDepartmentsByAgent(ctx, domain.AgentRef{ID: "a1", Username: "ann"}, []string{dept.ID})
	require.NoError(t, err)

	hooked := &findHookStore{Store: store}
	hooked.beforeFind = func() {
		_, err := svc.SaveDepartmentsByAgent(ctx, domain.AgentRef{ID: "a2", Username: "bob"}, []string{dept.ID})
		require.NoError(t, err)
	}
	reconciler := NewDepartmentService(DepartmentDependencies{Store: hooked})

	corrected, err := reconciler.ReconcileNumAgents(ctx)
	require.NoError(t, err)
	assert.Empty(t, corrected)

	got, err := store.Departments().GetByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumAgents)
}

func TestPostgresReconcileFixesDrift(t *testing.T) {
	ctx := context.Background()
	svc, store := newPostgresDepartmentService(t)
	dept, err := svc.CreateOrUpdateDepartment(ctx, "", domain.DepartmentData{Name: "Sales", Enabled: true})
	require.NoError(t, err)
	_, err = svc.SaveDepartmentsByAgent(ctx, domain.AgentRef{ID: "a1", Username: "ann"}, []string{dept.ID})
	require.NoError(t, err)
	_, err = svc.UpdateNumAgentsByID(ctx, dept.ID, 9)
	require.NoError(t, err)

	corrected, err := svc.ReconcileNumAgents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{dept.ID}, corrected)

	got, err := store.Departments().GetByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumAgents)
}
