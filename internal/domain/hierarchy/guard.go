package hierarchy

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"perfcycle/internal/domain/apperr"
)

type StoreAPI interface {
	LockTx(ctx context.Context, tx pgx.Tx) error
	EdgesTx(ctx context.Context, tx pgx.Tx) ([]Edge, error)
}

// Guard runs the cycle check inside the caller's transaction so the read and
// the manager write see the same graph.
type Guard struct {
	store StoreAPI
}

func NewGuard(store StoreAPI) *Guard {
	return &Guard{store: store}
}

// CheckTx takes the hierarchy lock, loads the graph and validates the edge.
// The lock is held until tx ends.
func (g *Guard) CheckTx(ctx context.Context, tx pgx.Tx, subjectID, proposedManagerID string) error {
	if proposedManagerID == subjectID {
		return ErrSelfManagement()
	}
	if err := g.store.LockTx(ctx, tx); err != nil {
		return errors.Wrap(err, "lock hierarchy")
	}
	edges, err := g.store.EdgesTx(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "load hierarchy")
	}
	graph := NewGraph(edges)
	if proposedManagerID != "" && !graph.Contains(proposedManagerID) {
		return apperr.Validation("manager_not_found", "manager does not exist")
	}
	return VerdictError(graph.Check(subjectID, proposedManagerID))
}

func ErrSelfManagement() error {
	return apperr.Conflict("self_management", "an employee cannot be their own manager")
}

// VerdictError converts a Check result into the error returned to callers.
func VerdictError(v Verdict) error {
	switch v {
	case VerdictSelfManagement:
		return ErrSelfManagement()
	case VerdictCycle:
		return apperr.Conflict("hierarchy_cycle", "manager assignment would create a cycle in the reporting hierarchy")
	case VerdictCorrupt:
		return apperr.Conflict("hierarchy_corrupt", "reporting hierarchy is inconsistent; manager chain does not terminate")
	default:
		return nil
	}
}
