package feedback

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Writer persists assignment intents one by one. A failed insert is recorded
// against its subject and the batch continues.
type Writer struct {
	store AssignmentInserter
	log   *zap.Logger
}

func NewWriter(store AssignmentInserter, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{store: store, log: log}
}

// Persist inserts intents in order inside tx. The only error it returns is a
// cancelled or expired context; the caller must then roll tx back.
func (w *Writer) Persist(ctx context.Context, tx pgx.Tx, cycleID string, intents []AssignmentIntent) (BatchResult, error) {
	result := BatchResult{Succeeded: make([]Assignment, 0, len(intents))}
	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "persist assignments")
		}
		assignment, err := w.store.InsertAssignmentTx(ctx, tx, cycleID, intent)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, errors.Wrap(ctxErr, "persist assignments")
			}
			w.log.Warn("assignment insert failed",
				zap.String("cycle_id", cycleID),
				zap.String("employee_id", intent.EmployeeID),
				zap.String("reviewer_id", intent.ReviewerID),
				zap.String("reviewer_type", intent.ReviewerType),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, AssignmentFailure{
				EmployeeID:   intent.EmployeeID,
				ReviewerID:   intent.ReviewerID,
				ReviewerType: intent.ReviewerType,
				Error:        failureMessage(err),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, assignment)
	}
	return result, nil
}

func failureMessage(err error) string {
	if errors.Is(err, ErrDuplicateAssignment) {
		return ErrDuplicateAssignment.Error()
	}
	return "failed to create assignment"
}
