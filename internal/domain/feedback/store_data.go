package feedback

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const employeeColumns = `
    e.id::text, e.first_name, e.last_name, e.email, e.role,
    COALESCE(e.department, ''), COALESCE(e.manager_id::text, ''), e.is_active`

const uniqueViolation = "23505"

func scanEmployees(rows pgx.Rows) ([]Employee, error) {
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Role, &emp.Department, &emp.ManagerID, &emp.IsActive); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	var emp Employee
	err := s.DB.QueryRow(ctx, `SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.id = $1
  `, employeeID).Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Role, &emp.Department, &emp.ManagerID, &emp.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) GetGoal(ctx context.Context, goalID string) (Goal, error) {
	var goal Goal
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, employee_id::text, COALESCE(manager_id::text, ''), title, COALESCE(category, ''), status
    FROM goals
    WHERE id = $1
  `, goalID).Scan(&goal.ID, &goal.EmployeeID, &goal.ManagerID, &goal.Title, &goal.Category, &goal.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrGoalNotFound
	}
	return goal, err
}

func (s *Store) ActiveEmployeesByIDs(ctx context.Context, employeeIDs []string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.is_active AND e.id::text = ANY($1)
    ORDER BY e.id
  `, employeeIDs)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

func (s *Store) ActiveEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.is_active
    ORDER BY e.id
  `)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

func (s *Store) ActiveDirectReports(ctx context.Context, managerID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.is_active AND e.manager_id = $1
    ORDER BY e.id
  `, managerID)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

func (s *Store) ActiveGoalOwnersByCategory(ctx context.Context, category string, statuses []string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `SELECT DISTINCT`+employeeColumns+`
    FROM employees e
    JOIN goals g ON g.employee_id = e.id
    WHERE e.is_active AND g.category = $1 AND g.status = ANY($2)
    ORDER BY 1
  `, category, statuses)
	if err != nil {
		return nil, err
	}
	return scanEmployees(rows)
}

func (s *Store) ActiveReportsOf(ctx context.Context, managerIDs []string) (map[string][]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT manager_id::text, id::text
    FROM employees
    WHERE is_active AND manager_id::text = ANY($1)
    ORDER BY manager_id, id
  `, managerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string, len(managerIDs))
	for rows.Next() {
		var managerID, employeeID string
		if err := rows.Scan(&managerID, &employeeID); err != nil {
			return nil, err
		}
		out[managerID] = append(out[managerID], employeeID)
	}
	return out, rows.Err()
}

func (s *Store) MissingCompetencies(ctx context.Context, competencyIDs []string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT wanted.id
    FROM unnest($1::text[]) AS wanted(id)
    LEFT JOIN competencies c ON c.id::text = wanted.id
    WHERE c.id IS NULL
    ORDER BY wanted.id
  `, competencyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

func (s *Store) CreateCycleTx(ctx context.Context, tx pgx.Tx, cycle Cycle) (Cycle, error) {
	if err := tx.QueryRow(ctx, `
    INSERT INTO feedback_cycles (name, description, type, start_date, end_date, status, created_by, goal_id, goal_category)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id::text, created_at
  `, cycle.Name, nullIfEmpty(cycle.Description), cycle.Type, cycle.StartDate, cycle.EndDate, cycle.Status,
		cycle.CreatedBy, nullIfEmpty(cycle.GoalID), nullIfEmpty(cycle.GoalCategory)).Scan(&cycle.ID, &cycle.CreatedAt); err != nil {
		return Cycle{}, err
	}

	for _, competencyID := range cycle.CompetencyIDs {
		if _, err := tx.Exec(ctx, `
      INSERT INTO feedback_cycle_competencies (cycle_id, competency_id)
      VALUES ($1,$2)
      ON CONFLICT DO NOTHING
    `, cycle.ID, competencyID); err != nil {
			return Cycle{}, errors.Wrapf(err, "link competency %s", competencyID)
		}
	}
	if cycle.CompetencyIDs == nil {
		cycle.CompetencyIDs = []string{}
	}
	return cycle, nil
}

// InsertAssignmentTx writes one feedback360 row inside its own savepoint so a
// constraint violation leaves the surrounding transaction usable.
func (s *Store) InsertAssignmentTx(ctx context.Context, tx pgx.Tx, cycleID string, intent AssignmentIntent) (Assignment, error) {
	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return Assignment{}, err
	}
	defer savepoint.Rollback(ctx)

	assignment := Assignment{
		CycleID:      cycleID,
		EmployeeID:   intent.EmployeeID,
		ReviewerID:   intent.ReviewerID,
		ReviewerType: intent.ReviewerType,
		IsAnonymous:  intent.IsAnonymous,
	}
	err = savepoint.QueryRow(ctx, `
    INSERT INTO feedback360 (cycle_id, employee_id, reviewer_id, reviewer_type, is_anonymous)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id::text, created_at
  `, cycleID, intent.EmployeeID, intent.ReviewerID, intent.ReviewerType, intent.IsAnonymous).Scan(&assignment.ID, &assignment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Assignment{}, duplicateAssignmentError(err)
		}
		return Assignment{}, err
	}
	if err := savepoint.Commit(ctx); err != nil {
		return Assignment{}, err
	}
	return assignment, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
