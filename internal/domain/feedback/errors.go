package feedback

import (
	"github.com/go-faster/errors"

	"perfcycle/internal/domain/apperr"
)

var (
	ErrGoalNotFound        = errors.New("goal not found")
	ErrEmployeeNotFound    = errors.New("employee not found")
	ErrDuplicateAssignment = errors.New("assignment already exists for this reviewer")
)

func duplicateAssignmentError(cause error) error {
	return &apperr.Error{
		Kind:    apperr.KindConflict,
		Code:    "duplicate_assignment",
		Message: ErrDuplicateAssignment.Error(),
		Err:     errors.Wrap(ErrDuplicateAssignment, cause.Error()),
	}
}
