package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/spec-kit/livechat-service/internal/domain"
	"github.com/spec-kit/livechat-service/internal/repository"
)

type departmentRow struct {
	seq  uint64
	dept domain.Department
}

type departments struct {
	state *state
	gate  gate
}

func (r *departments) GetByID(_ context.Context, id string) (*domain.Department, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	row, ok := r.state.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	dept := cloneDepartment(row.dept)
	return &dept, nil
}

// GetByIDForUpdate needs no row lock here: transactions already run one at
// a time.
func (r *departments) GetByIDForUpdate(ctx context.Context, id string) (*domain.Department, error) {
	return r.GetByID(ctx, id)
}

func (r *departments) GetByIDOrName(_ context.Context, idOrName string) (*domain.Department, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()

	match, ok := r.state.departments[idOrName]
	if !ok {
		for _, row := range r.state.departments {
			if row.dept.Name == idOrName && (match == nil || row.seq < match.seq) {
				match = row
			}
		}
	}
	if match == nil {
		return nil, repository.ErrNotFound
	}
	dept := cloneDepartment(match.dept)
	return &dept, nil
}

func (r *departments) Find(_ context.Context, filter repository.DepartmentFilter) ([]domain.Department, error) {
	defer r.gate.read()()
	r.state.mu.RLock()
	rows := make([]*departmentRow, 0, len(r.state.departments))
	for _, row := range r.state.departments {
		rows = append(rows, row)
	}
	rows = sortedBySeq(rows, func(row *departmentRow) uint64 { return row.seq })
	all := make([]domain.Department, 0, len(rows))
	for _, row := range rows {
		all = append(all, cloneDepartment(row.dept))
	}
	r.state.mu.RUnlock()

	return filter.Apply(all), nil
}

func (r *departments) Create(_ context.Context, dept *domain.Department) error {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	if _, exists := r.state.departments[dept.ID]; exists {
		return repository.ErrDuplicate
	}
	dept.UpdatedAt = r.state.now()
	r.state.departments[dept.ID] = &departmentRow{seq: r.state.next(), dept: cloneDepartment(*dept)}
	return nil
}

func (r *departments) Update(_ context.Context, id string, data domain.DepartmentData) error {
	return r.mutate(id, func(d *domain.Department) {
		d.Apply(data)
	})
}

func (r *departments) Patch(_ context.Context, id string, patch domain.DepartmentPatch) error {
	return r.mutate(id, func(d *domain.Department) {
		d.ApplyPatch(patch)
	})
}

func (r *departments) IncNumAgents(_ context.Context, id string, delta int) error {
	return r.mutate(id, func(d *domain.Department) {
		d.NumAgents += delta
	})
}

func (r *departments) SetNumAgents(_ context.Context, id string, numAgents int) error {
	return r.mutate(id, func(d *domain.Department) {
		d.NumAgents = numAgents
	})
}

func (r *departments) Delete(_ context.Context, id string) error {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if _, ok := r.state.departments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.state.departments, id)
	return nil
}

func (r *departments) mutate(id string, fn func(*domain.Department)) error {
	defer r.gate.write()()
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	row, ok := r.state.departments[id]
	if !ok {
		return repository.ErrNotFound
	}
	dept := cloneDepartment(row.dept)
	fn(&dept)
	dept.UpdatedAt = r.state.now()
	row.dept = cloneDepartment(dept)
	return nil
}

func cloneDepartment(d domain.Department) domain.Department {
	d.ChatClosingTags = slices.Clone(d.ChatClosingTags)
	d.Ancestors = slices.Clone(d.Ancestors)
	if d.BusinessHourID != nil {
		v := *d.BusinessHourID
		d.BusinessHourID = &v
	}
	if d.ParentID != nil {
		v := *d.ParentID
		d.ParentID = &v
	}
	return d
}
