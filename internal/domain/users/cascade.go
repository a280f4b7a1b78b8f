package users

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type cascadeStep struct {
	Name string
	// Clears lists the foreign keys to employees.id the step removes.
	Clears []string
	Run    func(CascadeStore, context.Context, pgx.Tx, string) (int64, error)
}

// cascadeSteps is the deletion order. Rows are removed child-first so no step
// trips a foreign key still pointing at a later step's rows.
var cascadeSteps = []cascadeStep{
	{
		Name:   "ratings",
		Clears: []string{"ratings.self_rated_by_id", "ratings.manager_rated_by_id", "ratings.goal_id"},
		Run:    CascadeStore.DeleteRatingsTx,
	},
	{
		Name:   "notifications",
		Clears: []string{"notifications.user_id"},
		Run:    CascadeStore.DeleteNotificationsTx,
	},
	{
		Name:   "feedback360",
		Clears: []string{"feedback360.reviewer_id", "feedback360.employee_id"},
		Run:    CascadeStore.DeleteFeedbackTx,
	},
	{
		Name:   "goals",
		Clears: []string{"goals.employee_id", "goals.manager_id", "goals.created_by_id", "goals.updated_by_id", "goals.deleted_by_id"},
		Run:    CascadeStore.DeleteGoalsTx,
	},
	{
		Name:   "direct_reports",
		Clears: []string{"employees.manager_id"},
		Run:    CascadeStore.DetachReportsTx,
	},
	{
		Name:   "employee",
		Clears: []string{"employees.id"},
		Run:    CascadeStore.DeleteUserTx,
	},
}

// CascadeOrder returns the step names in execution order.
func CascadeOrder() []string {
	out := make([]string, len(cascadeSteps))
	for i, step := range cascadeSteps {
		out[i] = step.Name
	}
	return out
}
