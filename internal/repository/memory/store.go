// Package memory provides a process-local Store used when no Postgres DSN is
// configured and as the backing store in tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/spec-kit/livechat-service/internal/repository"
)

// Store keeps every record in maps guarded by a single lock. Transactions
// are serialized and roll back by restoring a snapshot taken at BEGIN.
// Statements issued outside WithinTx wait for the open transaction to end,
// so they neither observe its uncommitted writes nor get undone by its
// rollback.
type Store struct {
	state *state
	gate  gate
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState(), gate: gate{mu: &sync.RWMutex{}}}
}

func (s *Store) Departments() repository.DepartmentRepository {
	return &departments{state: s.state, gate: s.gate}
}

func (s *Store) DepartmentAgents() repository.DepartmentAgentRepository {
	return &departmentAgents{state: s.state, gate: s.gate}
}

func (s *Store) Agents() repository.AgentRepository {
	return &agents{state: s.state, gate: s.gate}
}

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.gate.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.gate.mu.Lock()
	defer s.gate.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&Store{state: s.state, gate: gate{mu: s.gate.mu, inTx: true}}); err != nil {
		s.state.restore(snapshot)
		return err
	}
	return nil
}

// gate runs autocommit statements as single-statement transactions. Inside
// WithinTx the transaction already holds mu and the gate is a no-op.
type gate struct {
	mu   *sync.RWMutex
	inTx bool
}

func (g gate) read() func() {
	if g.inTx {
		return func() {}
	}
	g.mu.RLock()
	return g.mu.RUnlock
}

func (g gate) write() func() {
	if g.inTx {
		return func() {}
	}
	g.mu.Lock()
	return g.mu.Unlock
}

type assignmentKey struct {
	agentID      string
	departmentID string
}

type state struct {
	mu          sync.RWMutex
	departments map[string]*departmentRow
	assignments map[assignmentKey]*assignmentRow
	agents      map[string]*agentRow
	// seq orders rows by insertion so listings follow store order.
	seq uint64
	now func() time.Time
}

func newState() *state {
	return &state{
		departments: map[string]*departmentRow{},
		assignments: map[assignmentKey]*assignmentRow{},
		agents:      map[string]*agentRow{},
		now:         time.Now,
	}
}

func (s *state) next() uint64 {
	s.seq++
	return s.seq
}

type snapshot struct {
	departments map[string]*departmentRow
	assignments map[assignmentKey]*assignmentRow
	agents      map[string]*agentRow
	seq         uint64
}

func (s *state) clone() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		departments: make(map[string]*departmentRow, len(s.departments)),
		assignments: make(map[assignmentKey]*assignmentRow, len(s.assignments)),
		agents:      make(map[string]*agentRow, len(s.agents)),
		seq:         s.seq,
	}
	for k, v := range s.departments {
		row := *v
		row.dept = cloneDepartment(v.dept)
		snap.departments[k] = &row
	}
	for k, v := range s.assignments {
		row := *v
		snap.assignments[k] = &row
	}
	for k, v := range s.agents {
		row := *v
		snap.agents[k] = &row
	}
	return snap
}

func (s *state) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments = snap.departments
	s.assignments = snap.assignments
	s.agents = snap.agents
	s.seq = snap.seq
}

func sortedBySeq[T any](rows []T, seq func(T) uint64) []T {
	slices.SortFunc(rows, func(a, b T) int {
		switch sa, sb := seq(a), seq(b); {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	return rows
}
