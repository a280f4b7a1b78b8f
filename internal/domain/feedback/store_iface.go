package feedback

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type CohortStore interface {
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	GetGoal(ctx context.Context, goalID string) (Goal, error)
	ActiveEmployeesByIDs(ctx context.Context, employeeIDs []string) ([]Employee, error)
	ActiveEmployees(ctx context.Context) ([]Employee, error)
	ActiveDirectReports(ctx context.Context, managerID string) ([]Employee, error)
	ActiveGoalOwnersByCategory(ctx context.Context, category string, statuses []string) ([]Employee, error)
}

type AssignmentInserter interface {
	InsertAssignmentTx(ctx context.Context, tx pgx.Tx, cycleID string, intent AssignmentIntent) (Assignment, error)
}

type StoreAPI interface {
	CohortStore
	AssignmentInserter
	ActiveReportsOf(ctx context.Context, managerIDs []string) (map[string][]string, error)
	MissingCompetencies(ctx context.Context, competencyIDs []string) ([]string, error)
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateCycleTx(ctx context.Context, tx pgx.Tx, cycle Cycle) (Cycle, error)
}
