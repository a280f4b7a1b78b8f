package feedback

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"perfcycle/internal/domain/apperr"
	"perfcycle/internal/domain/auth"
	"perfcycle/internal/platform/metrics"
)

type Service struct {
	store    StoreAPI
	selector *CohortSelector
	writer   *Writer
	log      *zap.Logger
}

func NewService(store StoreAPI, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		selector: NewCohortSelector(store),
		writer:   NewWriter(store, log),
		log:      log,
	}
}

// CreateGoalBasedCycle creates a cycle and its reviewer assignments. Targeting,
// authorisation and generation errors abort before anything is written. The
// cycle and all assignments share one transaction; individual assignment
// failures are reported in the result instead.
func (s *Service) CreateGoalBasedCycle(ctx context.Context, requester auth.Requester, in CreateCycleInput) (CreateCycleResult, error) {
	if err := validateCycleInput(in); err != nil {
		return CreateCycleResult{}, err
	}

	members, err := s.selector.SelectCohort(ctx, in.Target, requester)
	if err != nil {
		return CreateCycleResult{}, err
	}

	if len(in.CompetencyIDs) > 0 {
		missing, err := s.store.MissingCompetencies(ctx, in.CompetencyIDs)
		if err != nil {
			return CreateCycleResult{}, errors.Wrap(err, "check competencies")
		}
		if len(missing) > 0 {
			return CreateCycleResult{}, apperr.Validation("unknown_competency", "unknown competency ids: "+strings.Join(missing, ", "))
		}
	}

	cohort := Cohort{Members: members}
	if in.Config.IncludeSubordinates {
		var managerIDs []string
		for _, member := range members {
			if member.Role == auth.RoleManager {
				managerIDs = append(managerIDs, member.ID)
			}
		}
		if len(managerIDs) > 0 {
			cohort.Reports, err = s.store.ActiveReportsOf(ctx, managerIDs)
			if err != nil {
				return CreateCycleResult{}, errors.Wrap(err, "load direct reports")
			}
		}
	}

	intents, err := GenerateAssignments(cohort, in.Config)
	if err != nil {
		return CreateCycleResult{}, err
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return CreateCycleResult{}, errors.Wrap(err, "begin cycle transaction")
	}
	defer tx.Rollback(ctx)

	cycle, err := s.store.CreateCycleTx(ctx, tx, Cycle{
		Name:          in.Name,
		Description:   in.Description,
		Type:          in.Type,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Status:        CycleStatusActive,
		CreatedBy:     requester.ID,
		GoalID:        in.Target.GoalID,
		GoalCategory:  in.Target.GoalCategory,
		CompetencyIDs: in.CompetencyIDs,
	})
	if err != nil {
		return CreateCycleResult{}, errors.Wrap(err, "create cycle")
	}

	batch, err := s.writer.Persist(ctx, tx, cycle.ID, intents)
	if err != nil {
		return CreateCycleResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateCycleResult{}, errors.Wrap(err, "commit cycle")
	}

	for _, assignment := range batch.Succeeded {
		metrics.AssignmentsCreated.WithLabelValues(assignment.ReviewerType).Inc()
	}
	metrics.AssignmentFailures.Add(float64(len(batch.Failed)))
	s.log.Info("feedback cycle created",
		zap.String("cycle_id", cycle.ID),
		zap.String("requester_id", requester.ID),
		zap.Int("cohort", len(members)),
		zap.Int("created", len(batch.Succeeded)),
		zap.Int("failed", len(batch.Failed)),
	)

	return CreateCycleResult{Cycle: cycle, TotalEmployees: len(members), Batch: batch}, nil
}

func validateCycleInput(in CreateCycleInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Type) == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return apperr.Validation("validation_error", "name, type, startDate and endDate are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return apperr.Validation("validation_error", "endDate must be on or after startDate")
	}
	if in.Config.MaxPeers < 0 {
		return apperr.Validation("validation_error", "maxPeers must not be negative")
	}
	return nil
}
