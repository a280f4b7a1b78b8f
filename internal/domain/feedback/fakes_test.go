package feedback

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type assignmentKey struct {
	cycleID, employeeID, reviewerID string
}

type fakeStore struct {
	employees    map[string]Employee
	goals        map[string]Goal
	competencies map[string]bool

	insertErr  map[assignmentKey]error
	onInsert   func(n int)
	tx         *fakeTx
	cycles     []Cycle
	inserted   []Assignment
	existing   map[assignmentKey]bool
	nextID     int
	listCalled int
}

func newFakeStore(employees ...Employee) *fakeStore {
	store := &fakeStore{
		employees:    map[string]Employee{},
		goals:        map[string]Goal{},
		competencies: map[string]bool{},
		insertErr:    map[assignmentKey]error{},
		existing:     map[assignmentKey]bool{},
	}
	for _, employee := range employees {
		store.employees[employee.ID] = employee
	}
	return store
}

func (f *fakeStore) sorted(keep func(Employee) bool) []Employee {
	f.listCalled++
	var out []Employee
	for _, employee := range f.employees {
		if employee.IsActive && keep(employee) {
			out = append(out, employee)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) GetEmployee(_ context.Context, id string) (Employee, error) {
	employee, ok := f.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return employee, nil
}

func (f *fakeStore) GetGoal(_ context.Context, id string) (Goal, error) {
	goal, ok := f.goals[id]
	if !ok {
		return Goal{}, ErrGoalNotFound
	}
	return goal, nil
}

func (f *fakeStore) ActiveEmployeesByIDs(_ context.Context, ids []string) ([]Employee, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	return f.sorted(func(e Employee) bool { return wanted[e.ID] }), nil
}

func (f *fakeStore) ActiveEmployees(context.Context) ([]Employee, error) {
	return f.sorted(func(Employee) bool { return true }), nil
}

func (f *fakeStore) ActiveDirectReports(_ context.Context, managerID string) ([]Employee, error) {
	return f.sorted(func(e Employee) bool { return e.ManagerID == managerID }), nil
}

func (f *fakeStore) ActiveGoalOwnersByCategory(_ context.Context, category string, statuses []string) ([]Employee, error) {
	owners := map[string]bool{}
	for _, goal := range f.goals {
		if goal.Category != category {
			continue
		}
		for _, status := range statuses {
			if goal.Status == status {
				owners[goal.EmployeeID] = true
			}
		}
	}
	return f.sorted(func(e Employee) bool { return owners[e.ID] }), nil
}

func (f *fakeStore) ActiveReportsOf(ctx context.Context, managerIDs []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, managerID := range managerIDs {
		reports, _ := f.ActiveDirectReports(ctx, managerID)
		for _, report := range reports {
			out[managerID] = append(out[managerID], report.ID)
		}
	}
	return out, nil
}

func (f *fakeStore) MissingCompetencies(_ context.Context, ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		if !f.competencies[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (f *fakeStore) BeginTx(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

func (f *fakeStore) CreateCycleTx(_ context.Context, _ pgx.Tx, cycle Cycle) (Cycle, error) {
	cycle.ID = "cycle-1"
	cycle.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.cycles = append(f.cycles, cycle)
	return cycle, nil
}

func (f *fakeStore) InsertAssignmentTx(_ context.Context, _ pgx.Tx, cycleID string, intent AssignmentIntent) (Assignment, error) {
	f.nextID++
	if f.onInsert != nil {
		f.onInsert(f.nextID)
	}
	key := assignmentKey{cycleID, intent.EmployeeID, intent.ReviewerID}
	if err := f.insertErr[key]; err != nil {
		return Assignment{}, err
	}
	if f.existing[key] {
		return Assignment{}, duplicateAssignmentError(errors.New("unique violation"))
	}
	f.existing[key] = true
	assignment := Assignment{
		ID:           cycleID + "-" + intent.EmployeeID + "-" + intent.ReviewerID,
		CycleID:      cycleID,
		EmployeeID:   intent.EmployeeID,
		ReviewerID:   intent.ReviewerID,
		ReviewerType: intent.ReviewerType,
		IsAnonymous:  intent.IsAnonymous,
	}
	f.inserted = append(f.inserted, assignment)
	return assignment, nil
}

func employee(id, role, department, managerID string) Employee {
	return Employee{ID: id, FirstName: id, Role: role, Department: department, ManagerID: managerID, IsActive: true}
}
