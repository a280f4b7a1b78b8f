package users

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"perfcycle/internal/domain/apperr"
	"perfcycle/internal/domain/auth"
	"perfcycle/internal/platform/lock"
	"perfcycle/internal/platform/metrics"
)

const DefaultDeleteLockTTL = 30 * time.Second

type Service struct {
	store   StoreAPI
	guard   HierarchyGuard
	locker  lock.Locker
	lockTTL time.Duration
	log     *zap.Logger
}

func NewService(store StoreAPI, guard HierarchyGuard, locker lock.Locker, lockTTL time.Duration, log *zap.Logger) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultDeleteLockTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, guard: guard, locker: locker, lockTTL: lockTTL, log: log}
}

// UpdateUser applies a partial update. A manager change is checked against
// the hierarchy inside the same transaction as the write; a rejected change
// leaves the row untouched.
func (s *Service) UpdateUser(ctx context.Context, in UpdateInput) (UpdateResult, error) {
	if err := validateUpdate(in); err != nil {
		return UpdateResult{}, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "begin update transaction")
	}
	defer tx.Rollback(ctx)

	before, err := s.store.GetUserForUpdateTx(ctx, tx, in.ID)
	if errors.Is(err, ErrUserNotFound) {
		return UpdateResult{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "load user")
	}

	after := applyUpdate(before, in)
	if in.Manager.Set && in.Manager.ID != before.ManagerID {
		if err := s.guard.CheckTx(ctx, tx, in.ID, in.Manager.ID); err != nil {
			if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindConflict {
				metrics.HierarchyRejections.WithLabelValues(appErr.Code).Inc()
				s.log.Info("manager reassignment rejected",
					zap.String("user_id", in.ID),
					zap.String("manager_id", in.Manager.ID),
					zap.String("reason", appErr.Code),
				)
			}
			return UpdateResult{}, err
		}
	}

	after, err = s.store.UpdateUserTx(ctx, tx, after)
	if errors.Is(err, ErrEmailTaken) {
		return UpdateResult{}, apperr.Conflict("email_taken", ErrEmailTaken.Error())
	}
	if errors.Is(err, ErrUserNotFound) {
		return UpdateResult{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return UpdateResult{}, errors.Wrap(err, "update user")
	}

	if err := tx.Commit(ctx); err != nil {
		return UpdateResult{}, errors.Wrap(err, "commit user update")
	}
	return UpdateResult{Before: before, After: after}, nil
}

var fieldValidator = validator.New()

func validateUpdate(in UpdateInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return apperr.Validation("validation_error", "id is required")
	}
	if in.Manager.Set && in.Manager.ID == in.ID {
		return apperr.Conflict("self_management", "an employee cannot be their own manager")
	}
	if in.Role != nil && !auth.ValidRole(*in.Role) {
		return apperr.Validation("validation_error", "role must be one of EMPLOYEE, MANAGER, ADMIN")
	}
	if in.Email != nil {
		if err := fieldValidator.Var(strings.TrimSpace(*in.Email), "required,email"); err != nil {
			return apperr.Validation("validation_error", "email is invalid")
		}
	}
	for _, name := range []*string{in.FirstName, in.LastName} {
		if name != nil && strings.TrimSpace(*name) == "" {
			return apperr.Validation("validation_error", "names must not be blank")
		}
	}
	return nil
}

func applyUpdate(user User, in UpdateInput) User {
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.Department != nil {
		user.Department = strings.TrimSpace(*in.Department)
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.Manager.Set {
		user.ManagerID = in.Manager.ID
	}
	return user
}

// DeleteUser removes the user and everything referencing them in one
// transaction, in cascadeSteps order. On failure nothing is removed and the
// returned error carries the step that failed.
func (s *Service) DeleteUser(ctx context.Context, requester auth.Requester, userID string) (DeleteResult, error) {
	result := DeleteResult{UserID: userID, State: StatePending, Steps: []StepResult{}}
	if strings.TrimSpace(userID) == "" {
		return result, apperr.Validation("validation_error", "id is required")
	}
	if requester.ID == userID {
		return result, apperr.Validation("self_delete", "admins cannot delete their own account")
	}

	lease, err := s.locker.Obtain(ctx, "user-delete:"+userID, s.lockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return result, apperr.Conflict("delete_in_progress", "user is already being deleted")
	}
	if err != nil {
		return result, errors.Wrap(err, "lock user")
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release delete lock failed", zap.String("user_id", userID), zap.Error(err))
		}
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return result, apperr.Transaction("begin delete transaction", err)
	}
	result.State = StateInTransaction

	rollback := func(cause error) (DeleteResult, error) {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Warn("delete rollback failed", zap.String("user_id", userID), zap.Error(rbErr))
		}
		result.State = StateRolledBack
		metrics.UserDeletes.WithLabelValues(string(StateRolledBack)).Inc()
		return result, cause
	}

	if _, err := s.store.GetUserForUpdateTx(ctx, tx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return rollback(apperr.NotFound("user not found"))
		}
		return rollback(apperr.Transaction("load user", err))
	}

	for _, step := range cascadeSteps {
		rows, err := step.Run(s.store, ctx, tx, userID)
		if err != nil {
			s.log.Error("cascade delete step failed",
				zap.String("user_id", userID),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			return rollback(apperr.Transaction("delete "+step.Name, err))
		}
		result.Steps = append(result.Steps, StepResult{Name: step.Name, RowsAffected: rows})
	}

	if err := tx.Commit(ctx); err != nil {
		return rollback(apperr.Transaction("commit delete", err))
	}
	result.State = StateCommitted
	metrics.UserDeletes.WithLabelValues(string(StateCommitted)).Inc()
	s.log.Info("user deleted",
		zap.String("user_id", userID),
		zap.String("requester_id", requester.ID),
		zap.Any("steps", result.Steps),
	)
	return result, nil
}
