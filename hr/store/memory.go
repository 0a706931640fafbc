// Package store provides hr.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/hr-engine/hr"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	resignations map[string]*hr.Resignation
	employees    map[string]*hr.Employee
}

func NewMemory() *Memory {
	return &Memory{
		resignations: make(map[string]*hr.Resignation),
		employees:    make(map[string]*hr.Employee),
	}
}

// SaveResignation stores a copy of the record. Callers keep their own
// aggregate; aliasing into the store would defeat rollback.
func (m *Memory) SaveResignation(_ context.Context, r *hr.Resignation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveResignationLocked(r)
}

func (m *Memory) saveResignationLocked(r *hr.Resignation) error {
	cp := *r
	m.resignations[r.ID] = &cp
	return nil
}

func (m *Memory) GetResignation(_ context.Context, id string) (*hr.Resignation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getResignationLocked(id)
}

func (m *Memory) getResignationLocked(id string) (*hr.Resignation, error) {
	r, ok := m.resignations[id]
	if !ok {
		return nil, hr.ErrResignationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListResignations(_ context.Context, f hr.ResignationFilter) ([]*hr.Resignation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listResignationsLocked(f)
}

func (m *Memory) listResignationsLocked(f hr.ResignationFilter) ([]*hr.Resignation, error) {
	var result []*hr.Resignation
	for _, r := range m.resignations {
		if !matches(r, f) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

func matches(r *hr.Resignation, f hr.ResignationFilter) bool {
	if r.Cancelled && !f.IncludeCancelled {
		return false
	}
	if f.OrganizationID != "" && r.OrganizationID != f.OrganizationID {
		return false
	}
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.CurrentLevel != "" && r.CurrentLevel != f.CurrentLevel {
		return false
	}
	return true
}

func (m *Memory) SaveEmployee(_ context.Context, e *hr.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveEmployeeLocked(e)
}

func (m *Memory) saveEmployeeLocked(e *hr.Employee) error {
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id string) (*hr.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEmployeeLocked(id)
}

func (m *Memory) getEmployeeLocked(id string) (*hr.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, hr.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) ListEmployees(_ context.Context, orgID string) ([]*hr.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*hr.Employee
	for _, e := range m.employees {
		if orgID != "" && e.OrganizationID != orgID {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction, simulated with a snapshot and
// rollback on error. Holding the write lock for the duration gives the
// same serialization the SQL store gets from its transaction: a
// concurrent actor re-reads state committed by the winner.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(hr.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	resCopy := make(map[string]*hr.Resignation, len(tm.resignations))
	for k, v := range tm.resignations {
		cp := *v
		resCopy[k] = &cp
	}
	empCopy := make(map[string]*hr.Employee, len(tm.employees))
	for k, v := range tm.employees {
		cp := *v
		empCopy[k] = &cp
	}
	return memorySnapshot{resignations: resCopy, employees: empCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.resignations = s.resignations
	tm.employees = s.employees
}

type memorySnapshot struct {
	resignations map[string]*hr.Resignation
	employees    map[string]*hr.Employee
}

// txMemoryView writes directly to the parent (the snapshot handles
// rollback) and reads without re-locking, giving read-your-writes
// semantics inside the transaction.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) SaveResignation(_ context.Context, r *hr.Resignation) error {
	return tv.parent.saveResignationLocked(r)
}

func (tv *txMemoryView) GetResignation(_ context.Context, id string) (*hr.Resignation, error) {
	return tv.parent.getResignationLocked(id)
}

func (tv *txMemoryView) ListResignations(_ context.Context, f hr.ResignationFilter) ([]*hr.Resignation, error) {
	return tv.parent.listResignationsLocked(f)
}

func (tv *txMemoryView) SaveEmployee(_ context.Context, e *hr.Employee) error {
	return tv.parent.saveEmployeeLocked(e)
}

func (tv *txMemoryView) GetEmployee(_ context.Context, id string) (*hr.Employee, error) {
	return tv.parent.getEmployeeLocked(id)
}

func (tv *txMemoryView) ListEmployees(_ context.Context, orgID string) ([]*hr.Employee, error) {
	var result []*hr.Employee
	for _, e := range tv.parent.employees {
		if orgID != "" && e.OrganizationID != orgID {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
