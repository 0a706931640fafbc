/*
store.go - Persistence interfaces for resignations and employees

PURPOSE:
  Defines the interface between the offboarding engine and the database.
  Different implementations can use SQLite or in-memory storage; the only
  semantics the engine requires is atomic multi-record transactions with
  read-your-writes isolation.

KEY INTERFACES:
  Store:   Record persistence and queries
  TxStore: Transactional wrapper (atomic multi-record writes)

ATOMICITY:
  Every state transition writes two records: the resignation and the
  employee projection. WithTx ensures either both writes are visible or
  neither is. Crucially, the engine re-reads and re-checks preconditions
  INSIDE WithTx, so two concurrent actors racing on the same stage cannot
  both observe pending - the loser fails with ErrAlreadyActed.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - hr/store/memory.go:     In-memory for testing/dev

SEE ALSO:
  - service.go: The only writer of resignations and projections
  - visibility.go: Read-side consumers of ListResignations
*/
package hr

import "context"

// =============================================================================
// STORE - Record persistence
// =============================================================================

// Store handles persistence of resignations and employee records.
// Resignations are never deleted; terminal records stay for audit.
type Store interface {
	// SaveResignation inserts or replaces a resignation by ID.
	SaveResignation(ctx context.Context, r *Resignation) error

	// GetResignation returns the resignation or ErrResignationNotFound.
	GetResignation(ctx context.Context, id string) (*Resignation, error)

	// ListResignations returns resignations matching the filter, most
	// recently submitted first.
	ListResignations(ctx context.Context, f ResignationFilter) ([]*Resignation, error)

	// SaveEmployee inserts or replaces an employee record by ID.
	SaveEmployee(ctx context.Context, e *Employee) error

	// GetEmployee returns the employee or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id string) (*Employee, error)

	// ListEmployees returns all employees in an organization. An empty
	// orgID returns everyone.
	ListEmployees(ctx context.Context, orgID string) ([]*Employee, error)
}

// ResignationFilter narrows ListResignations. Zero values mean "any".
type ResignationFilter struct {
	OrganizationID string
	EmployeeID     string
	Status         Status
	CurrentLevel   Level

	// IncludeCancelled includes soft-cancelled records (history views).
	// Pending views always leave this false.
	IncludeCancelled bool
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic cross-record writes
// =============================================================================

// TxStore wraps Store with transaction support. Every state transition in
// service.go runs inside WithTx; no component writes either record outside
// one.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. Reads inside fn observe
	// writes made earlier in the same fn (read-your-writes). If fn
	// returns an error the transaction is rolled back; otherwise it is
	// committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
