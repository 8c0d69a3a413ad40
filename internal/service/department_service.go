package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/events"
	"github.com/spec-kit/livechat-service/internal/observability"
	"github.com/spec-kit/livechat-service/internal/repository"
)

// ErrDepartmentNotFound is returned when an agent is assigned to a
// department that does not exist.
var ErrDepartmentNotFound = errors.New("department not found")

// DepartmentCache is consulted by FindOneByID and invalidated after writes.
type DepartmentCache interface {
	Get(ctx context.Context, id string) (*domain.Department, bool)
	Set(ctx context.Context, dept *domain.Department)
	Invalidate(ctx context.Context, ids ...string)
}

// DepartmentService keeps departments, their agent assignments and the
// denormalized numAgents counter consistent.
//
// Every multi-step operation runs in a single store transaction and changes
// numAgents with relative increments, so concurrent reassignments do not
// lose updates. Counters can still drift through the direct mutators
// (UpdateNumAgentsByID, RemoveByID) or writes made outside this service;
// ReconcileNumAgents repairs that.
type DepartmentService struct {
	store      repository.Store
	cache      DepartmentCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// DepartmentDependencies bundles collaborators. Only Store is required.
type DepartmentDependencies struct {
	Store      repository.Store
	Cache      DepartmentCache
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewDepartmentService creates the service.
func NewDepartmentService(deps DepartmentDependencies) *DepartmentService {
	s := &DepartmentService{
		store:      deps.Store,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// SaveDepartmentsResult reports how an agent's roster changed.
type SaveDepartmentsResult struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// Changed reports whether any assignment was added or removed.
func (r *SaveDepartmentsResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// FindOptions orders and pages query results.
type FindOptions struct {
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

func (o FindOptions) apply(f repository.DepartmentFilter) repository.DepartmentFilter {
	f.SortBy = o.SortBy
	f.SortDesc = o.SortDesc
	f.Limit = o.Limit
	f.Offset = o.Offset
	return f
}

// CreateOrUpdateDepartment writes every field of data to the department.
// With an empty id a new department is created. When the department
// existed and its enabled flag changes, the flag is copied onto all of its
// assignment records. Creation never cascades.
func (s *DepartmentService) CreateOrUpdateDepartment(ctx context.Context, id string, data domain.DepartmentData) (*domain.Department, error) {
	var (
		saved    *domain.Department
		created  bool
		cascaded bool
		affected int64
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var prior *domain.Department
		if id != "" {
			// The lock keeps a concurrent save from deciding the cascade
			// against an enabled flag that is about to change.
			dept, err := tx.Departments().GetByIDForUpdate(ctx, id)
			switch {
			case err == nil:
				prior = dept
			case !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("load department %s: %w", id, err)
			}
		}

		deptID := id
		if prior != nil {
			if err := tx.Departments().Update(ctx, deptID, data); err != nil {
				return fmt.Errorf("update department %s: %w", deptID, err)
			}
		} else {
			dept := &domain.Department{ID: deptID}
			dept.Apply(data)
			if err := tx.Departments().Create(ctx, dept); err != nil {
				return fmt.Errorf("create department: %w", err)
			}
			deptID = dept.ID
			created = true
		}

		if prior != nil && prior.Enabled != data.Enabled {
			n, err := tx.DepartmentAgents().SetDepartmentEnabledByDepartmentID(ctx, deptID, data.Enabled)
			if err != nil {
				return fmt.Errorf("propagate enabled to %s: %w", deptID, err)
			}
			cascaded = true
			affected = n
		}

		dept, err := tx.Departments().GetByID(ctx, deptID)
		if err != nil {
			return fmt.Errorf("reload department %s: %w", deptID, err)
		}
		saved = dept
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, saved.ID)
	if cascaded {
		s.metrics.RecordCascade()
		s.logger.Info("department enabled flag propagated",
			zap.String("department_id", saved.ID),
			zap.Bool("enabled", saved.Enabled),
			zap.Int64("assignments", affected))
		s.publish(ctx, events.Event{
			Type:         events.EventDepartmentEnabledChanged,
			DepartmentID: saved.ID,
			Payload:      events.DepartmentEnabledChangedPayload{Enabled: saved.Enabled, AssignmentsAffected: affected},
		})
	}
	s.publish(ctx, events.Event{
		Type:         events.EventDepartmentSaved,
		DepartmentID: saved.ID,
		Payload:      events.DepartmentSavedPayload{Name: saved.Name, Enabled: saved.Enabled, Created: created},
	})
	return saved, nil
}

// SaveDepartmentsByAgent makes departmentIDs the agent's full roster.
// Assignments outside the set are removed and their department's numAgents
// decremented; departments new to the agent get an assignment and an
// increment. Departments kept from the previous roster are not written.
func (s *DepartmentService) SaveDepartmentsByAgent(ctx context.Context, agent domain.AgentRef, departmentIDs []string) (*SaveDepartmentsResult, error) {
	target := uniqueIDs(departmentIDs)
	targetSet := make(map[string]struct{}, len(target))
	for _, id := range target {
		targetSet[id] = struct{}{}
	}

	var result *SaveDepartmentsResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		res := &SaveDepartmentsResult{Added: []string{}, Removed: []string{}, Unchanged: []string{}}

		current, err := tx.DepartmentAgents().ListByAgentID(ctx, agent.ID)
		if err != nil {
			return fmt.Errorf("list departments of agent %s: %w", agent.ID, err)
		}
		saved := make(map[string]struct{}, len(current))
		for _, assignment := range current {
			saved[assignment.DepartmentID] = struct{}{}
			if _, keep := targetSet[assignment.DepartmentID]; keep {
				continue
			}
			removed, err := tx.DepartmentAgents().RemoveByDepartmentIDAndAgentID(ctx, assignment.DepartmentID, agent.ID)
			if err != nil {
				return err
			}
			if !removed {
				continue
			}
			if err := tx.Departments().IncNumAgents(ctx, assignment.DepartmentID, -1); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("decrement agents of %s: %w", assignment.DepartmentID, err)
			}
			res.Removed = append(res.Removed, assignment.DepartmentID)
		}

		for _, departmentID := range target {
			if _, ok := saved[departmentID]; ok {
				res.Unchanged = append(res.Unchanged, departmentID)
				continue
			}
			dept, err := tx.Departments().GetByIDForUpdate(ctx, departmentID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrDepartmentNotFound, departmentID)
				}
				return fmt.Errorf("load department %s: %w", departmentID, err)
			}
			inserted, err := tx.DepartmentAgents().Save(ctx, &domain.DepartmentAgent{
				AgentID:           agent.ID,
				DepartmentID:      departmentID,
				Username:          agent.Username,
				DepartmentEnabled: dept.Enabled,
				Count:             0,
				Order:             0,
			})
			if err != nil {
				return err
			}
			if !inserted {
				res.Unchanged = append(res.Unchanged, departmentID)
				continue
			}
			if err := tx.Departments().IncNumAgents(ctx, departmentID, 1); err != nil {
				return fmt.Errorf("increment agents of %s: %w", departmentID, err)
			}
			res.Added = append(res.Added, departmentID)
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed() {
		s.cache.Invalidate(ctx, append(append([]string{}, result.Added...), result.Removed...)...)
		s.metrics.RecordAssignments(len(result.Added), len(result.Removed))
		s.publish(ctx, events.Event{
			Type:    events.EventAgentDepartmentsChanged,
			AgentID: agent.ID,
			Payload: events.AgentDepartmentsChangedPayload{
				Username: agent.Username,
				Added:    result.Added,
				Removed:  result.Removed,
			},
		})
	}
	return result, nil
}

// UpdateByID applies a partial update. It does not touch assignments, even
// when the patch changes the enabled flag. It reports whether the
// department existed.
func (s *DepartmentService) UpdateByID(ctx context.Context, id string, patch domain.DepartmentPatch) (bool, error) {
	err := s.store.Departments().Patch(ctx, id, patch)
	return s.afterMutation(ctx, id, err)
}

// UpdateNumAgentsByID overwrites the counter. Callers own its correctness.
func (s *DepartmentService) UpdateNumAgentsByID(ctx context.Context, id string, numAgents int) (bool, error) {
	err := s.store.Departments().SetNumAgents(ctx, id, numAgents)
	return s.afterMutation(ctx, id, err)
}

// RemoveByID deletes the department record only; assignments referencing
// it are left in place.
func (s *DepartmentService) RemoveByID(ctx context.Context, id string) (bool, error) {
	err := s.store.Departments().Delete(ctx, id)
	found, err := s.afterMutation(ctx, id, err)
	if found && err == nil {
		s.publish(ctx, events.Event{Type: events.EventDepartmentRemoved, DepartmentID: id})
	}
	return found, err
}

func (s *DepartmentService) afterMutation(ctx context.Context, id string, err error) (bool, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.cache.Invalidate(ctx, id)
	return true, nil
}

// FindOneByID returns the department or nil when it does not exist.
func (s *DepartmentService) FindOneByID(ctx context.Context, id string) (*domain.Department, error) {
	if dept, ok := s.cache.Get(ctx, id); ok {
		s.metrics.RecordCacheLookup(true)
		return dept, nil
	}
	s.metrics.RecordCacheLookup(false)

	dept, err := s.store.Departments().GetByID(ctx, id)
	if err != nil {
		return nil, nilIfNotFound(err)
	}
	s.cache.Set(ctx, dept)
	return dept, nil
}

// FindByDepartmentID returns the department as a list of zero or one.
func (s *DepartmentService) FindByDepartmentID(ctx context.Context, id string) ([]domain.Department, error) {
	return s.store.Departments().Find(ctx, repository.DepartmentFilter{IDs: []string{id}})
}

// FindOneByIDOrName matches the id first, then the name.
func (s *DepartmentService) FindOneByIDOrName(ctx context.Context, idOrName string) (*domain.Department, error) {
	dept, err := s.store.Departments().GetByIDOrName(ctx, idOrName)
	if err != nil {
		return nil, nilIfNotFound(err)
	}
	return dept, nil
}

// FindEnabledWithAgents returns enabled departments that have agents.
func (s *DepartmentService) FindEnabledWithAgents(ctx context.Context, opts FindOptions) ([]domain.Department, error) {
	enabled := true
	return s.store.Departments().Find(ctx, opts.apply(repository.DepartmentFilter{Enabled: &enabled, WithAgents: true}))
}

// FindEnabledWithAgentsAndBusinessUnit narrows FindEnabledWithAgents to one
// business unit when unitID is not empty.
func (s *DepartmentService) FindEnabledWithAgentsAndBusinessUnit(ctx context.Context, unitID string, opts FindOptions) ([]domain.Department, error) {
	enabled := true
	filter := repository.DepartmentFilter{Enabled: &enabled, WithAgents: true}
	if unitID != "" {
		filter.UnitIDs = []string{unitID}
	}
	return s.store.Departments().Find(ctx, opts.apply(filter))
}

// FindByUnitIDs returns departments that belong to one of the units.
func (s *DepartmentService) FindByUnitIDs(ctx context.Context, unitIDs []string, opts FindOptions) ([]domain.Department, error) {
	return s.store.Departments().Find(ctx, opts.apply(repository.DepartmentFilter{UnitIDs: nonNil(unitIDs)}))
}

// FindActiveByUnitIDs is FindByUnitIDs restricted to enabled departments
// with agents.
func (s *DepartmentService) FindActiveByUnitIDs(ctx context.Context, unitIDs []string, opts FindOptions) ([]domain.Department, error) {
	enabled := true
	return s.store.Departments().Find(ctx, opts.apply(repository.DepartmentFilter{
		Enabled:    &enabled,
		WithAgents: true,
		UnitIDs:    nonNil(unitIDs),
	}))
}

// List runs an arbitrary filter.
func (s *DepartmentService) List(ctx context.Context, filter repository.DepartmentFilter) ([]domain.Department, error) {
	return s.store.Departments().Find(ctx, filter)
}

// DepartmentAgents returns the roster of a department.
func (s *DepartmentService) DepartmentAgents(ctx context.Context, departmentID string) ([]domain.DepartmentAgent, error) {
	return s.store.DepartmentAgents().ListByDepartmentID(ctx, departmentID)
}

// AgentDepartments returns the assignments of an agent.
func (s *DepartmentService) AgentDepartments(ctx context.Context, agentID string) ([]domain.DepartmentAgent, error) {
	return s.store.DepartmentAgents().ListByAgentID(ctx, agentID)
}

// ReconcileNumAgents recounts assignments and rewrites every department
// whose numAgents disagrees. It returns the corrected department ids.
//
// A first unlocked pass picks candidates. Each candidate is then recounted
// in its own transaction while its department row is locked, so an
// assignment change committing in between is never overwritten with a
// stale count.
func (s *DepartmentService) ReconcileNumAgents(ctx context.Context) ([]string, error) {
	counts, err := s.store.DepartmentAgents().CountByDepartment(ctx)
	if err != nil {
		return nil, err
	}
	departments, err := s.store.Departments().Find(ctx, repository.DepartmentFilter{})
	if err != nil {
		return nil, err
	}

	corrected := []string{}
	for _, dept := range departments {
		if dept.NumAgents == counts[dept.ID] {
			continue
		}
		fixed, err := s.reconcileDepartment(ctx, dept.ID)
		if err != nil {
			s.cache.Invalidate(ctx, corrected...)
			return corrected, err
		}
		if fixed {
			corrected = append(corrected, dept.ID)
		}
	}
	s.cache.Invalidate(ctx, corrected...)
	s.metrics.RecordReconciled(len(corrected))
	return corrected, nil
}

func (s *DepartmentService) reconcileDepartment(ctx context.Context, id string) (bool, error) {
	fixed := false
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		dept, err := tx.Departments().GetByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock department %s: %w", id, err)
		}
		actual, err := tx.DepartmentAgents().CountByDepartmentID(ctx, id)
		if err != nil {
			return err
		}
		if dept.NumAgents == actual {
			return nil
		}
		if err := tx.Departments().SetNumAgents(ctx, id, actual); err != nil {
			return fmt.Errorf("correct agents of %s: %w", id, err)
		}
		s.logger.Warn("numAgents drift corrected",
			zap.String("department_id", id),
			zap.Int("stored", dept.NumAgents),
			zap.Int("actual", actual))
		fixed = true
		return nil
	})
	return fixed, err
}

func (s *DepartmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func nilIfNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Department, bool) { return nil, false }
func (noopCache) Set(context.Context, *domain.Department)                {}
func (noopCache) Invalidate(context.Context, ...string)                  {}
