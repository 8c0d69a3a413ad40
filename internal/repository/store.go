package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/livechat-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup by key matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("record already exists")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories that must change together.
type Store interface {
	Departments() DepartmentRepository
	DepartmentAgents() DepartmentAgentRepository
	Agents() AgentRepository
	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	// GetByIDForUpdate loads the department and holds a row lock on it until
	// the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Department, error)
	GetByIDOrName(ctx context.Context, idOrName string) (*domain.Department, error)
	Find(ctx context.Context, filter DepartmentFilter) ([]domain.Department, error)
	// Create inserts dept, generating an id when dept.ID is empty.
	Create(ctx context.Context, dept *domain.Department) error
	// Update overwrites every writable field of the department.
	Update(ctx context.Context, id string, data domain.DepartmentData) error
	Patch(ctx context.Context, id string, patch domain.DepartmentPatch) error
	IncNumAgents(ctx context.Context, id string, delta int) error
	SetNumAgents(ctx context.Context, id string, numAgents int) error
	Delete(ctx context.Context, id string) error
}

// DepartmentAgentRepository manages agent-to-department assignment records.
type DepartmentAgentRepository interface {
	ListByAgentID(ctx context.Context, agentID string) ([]domain.DepartmentAgent, error)
	ListByDepartmentID(ctx context.Context, departmentID string) ([]domain.DepartmentAgent, error)
	// CountByDepartment returns the number of assignments per department id.
	CountByDepartment(ctx context.Context) (map[string]int, error)
	CountByDepartmentID(ctx context.Context, departmentID string) (int, error)
	// Save upserts the assignment and reports whether a new record was inserted.
	Save(ctx context.Context, assignment *domain.DepartmentAgent) (bool, error)
	// RemoveByDepartmentIDAndAgentID reports whether a record was deleted.
	RemoveByDepartmentIDAndAgentID(ctx context.Context, departmentID, agentID string) (bool, error)
	SetDepartmentEnabledByDepartmentID(ctx context.Context, departmentID string, enabled bool) (int64, error)
}

// AgentRepository handles persistence for agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByUsername(ctx context.Context, username string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
}

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Role   *domain.AgentRole
	Active *bool
	Limit  int
	Offset int
}
