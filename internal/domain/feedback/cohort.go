package feedback

import (
	"context"
	"sort"

	"github.com/go-faster/errors"

	"perfcycle/internal/domain/apperr"
	"perfcycle/internal/domain/auth"
)

type CohortSelector struct {
	store CohortStore
}

func NewCohortSelector(store CohortStore) *CohortSelector {
	return &CohortSelector{store: store}
}

// SelectCohort resolves the employees a cycle targets. The result is
// deduplicated and sorted by employee id so peer selection is reproducible.
// A goalId is loaded and authorized even when employeeIds decide the cohort,
// since the cycle stays linked to it.
func (s *CohortSelector) SelectCohort(ctx context.Context, target Target, requester auth.Requester) ([]Employee, error) {
	if !requester.IsManager() && !requester.IsAdmin() {
		return nil, apperr.Forbidden("only managers and admins can create feedback cycles")
	}

	var goalOwner *Employee
	if target.GoalID != "" {
		owner, err := s.authorizeGoal(ctx, target.GoalID, requester)
		if err != nil {
			return nil, err
		}
		goalOwner = owner
	}

	var (
		members []Employee
		err     error
	)
	switch {
	case len(target.EmployeeIDs) > 0:
		members, err = s.explicit(ctx, target.EmployeeIDs, requester)
	case target.GoalID != "":
		if goalOwner != nil {
			members = []Employee{*goalOwner}
		}
	case target.GoalCategory != "":
		members, err = s.category(ctx, target.GoalCategory, requester)
	case requester.IsManager():
		members, err = s.store.ActiveDirectReports(ctx, requester.ID)
	default:
		members, err = s.store.ActiveEmployees(ctx)
	}
	if err != nil {
		return nil, err
	}
	return normalizeCohort(members), nil
}

// explicit keeps only the listed ids that belong to active employees. Managers
// may list their direct reports only.
func (s *CohortSelector) explicit(ctx context.Context, employeeIDs []string, requester auth.Requester) ([]Employee, error) {
	members, err := s.store.ActiveEmployeesByIDs(ctx, employeeIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load targeted employees")
	}
	if requester.IsManager() {
		for _, member := range members {
			if member.ManagerID != requester.ID {
				return nil, apperr.Forbidden("managers can only target their direct reports")
			}
		}
	}
	return members, nil
}

// authorizeGoal returns the goal's owner, or nil when the owner no longer
// exists.
func (s *CohortSelector) authorizeGoal(ctx context.Context, goalID string, requester auth.Requester) (*Employee, error) {
	goal, err := s.store.GetGoal(ctx, goalID)
	if errors.Is(err, ErrGoalNotFound) {
		return nil, apperr.NotFound("goal not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "load goal")
	}

	owner, err := s.store.GetEmployee(ctx, goal.EmployeeID)
	if errors.Is(err, ErrEmployeeNotFound) {
		if requester.IsManager() {
			return nil, apperr.Forbidden("managers can only target goals of their direct reports")
		}
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load goal owner")
	}
	if requester.IsManager() && owner.ManagerID != requester.ID {
		return nil, apperr.Forbidden("managers can only target goals of their direct reports")
	}
	return &owner, nil
}

func (s *CohortSelector) category(ctx context.Context, category string, requester auth.Requester) ([]Employee, error) {
	owners, err := s.store.ActiveGoalOwnersByCategory(ctx, category, TargetableGoalStatuses)
	if err != nil {
		return nil, errors.Wrap(err, "load goal owners by category")
	}
	if !requester.IsManager() {
		return owners, nil
	}
	filtered := owners[:0:0]
	for _, owner := range owners {
		if owner.ManagerID == requester.ID {
			filtered = append(filtered, owner)
		}
	}
	return filtered, nil
}

func normalizeCohort(members []Employee) []Employee {
	seen := make(map[string]struct{}, len(members))
	out := make([]Employee, 0, len(members))
	for _, member := range members {
		if !member.IsActive {
			continue
		}
		if _, ok := seen[member.ID]; ok {
			continue
		}
		seen[member.ID] = struct{}{}
		out = append(out, member)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
