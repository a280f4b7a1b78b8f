package feedback

import (
	"fmt"

	"perfcycle/internal/domain/apperr"
	"perfcycle/internal/domain/auth"
)

// GenerateAssignments derives every reviewer assignment for the cohort. It
// does no I/O. Members are processed in slice order and peers are picked in
// that same order, so callers should pass a sorted cohort.
func GenerateAssignments(cohort Cohort, cfg Config) ([]AssignmentIntent, error) {
	if cfg.MaxPeers < 0 {
		return nil, apperr.Validation("invalid_max_peers", "maxPeers must not be negative")
	}

	var intents []AssignmentIntent
	emit := func(intent AssignmentIntent) error {
		if (intent.ReviewerType == ReviewerSelf) != (intent.EmployeeID == intent.ReviewerID) {
			return apperr.Conflict("invalid_reviewer", fmt.Sprintf("employee %s cannot be reviewed by %s as %s", intent.EmployeeID, intent.ReviewerID, intent.ReviewerType))
		}
		intents = append(intents, intent)
		return nil
	}

	for _, member := range cohort.Members {
		if cfg.IncludeSelf {
			if err := emit(AssignmentIntent{EmployeeID: member.ID, ReviewerID: member.ID, ReviewerType: ReviewerSelf}); err != nil {
				return nil, err
			}
		}

		if cfg.IncludeManager && member.ManagerID != "" {
			if err := emit(AssignmentIntent{EmployeeID: member.ID, ReviewerID: member.ManagerID, ReviewerType: ReviewerManager}); err != nil {
				return nil, err
			}
		}

		if cfg.IncludePeers && cfg.MaxPeers > 0 {
			for _, peer := range peersOf(member, cohort.Members, cfg.MaxPeers) {
				if err := emit(AssignmentIntent{EmployeeID: member.ID, ReviewerID: peer.ID, ReviewerType: ReviewerPeer, IsAnonymous: true}); err != nil {
					return nil, err
				}
			}
		}

		if cfg.IncludeSubordinates && member.Role == auth.RoleManager {
			for _, reportID := range cohort.Reports[member.ID] {
				if err := emit(AssignmentIntent{EmployeeID: member.ID, ReviewerID: reportID, ReviewerType: ReviewerSubordinate, IsAnonymous: true}); err != nil {
					return nil, err
				}
			}
		}
	}
	return intents, nil
}

func peersOf(member Employee, pool []Employee, limit int) []Employee {
	if member.Department == "" {
		return nil
	}
	var peers []Employee
	for _, candidate := range pool {
		if len(peers) == limit {
			break
		}
		if candidate.ID == member.ID {
			continue
		}
		if candidate.Department != member.Department || candidate.Role != member.Role {
			continue
		}
		peers = append(peers, candidate)
	}
	return peers
}
