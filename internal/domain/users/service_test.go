package users

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfcycle/internal/domain/apperr"
	"perfcycle/internal/domain/auth"
	"perfcycle/internal/domain/hierarchy"
	"perfcycle/internal/platform/lock"
)

var admin = auth.Requester{ID: "admin", Role: auth.RoleAdmin}

func user(id, managerID string) User {
	return User{ID: id, Email: id + "@example.com", FirstName: id, LastName: "Test", Role: auth.RoleEmployee, ManagerID: managerID, IsActive: true}
}

func newTestService(db *memDB) *Service {
	return NewService(db, hierarchy.NewGuard(db), lock.NewLocal(), time.Minute, nil)
}

func strPtr(v string) *string { return &v }

func TestUpdateUserRejectsReportAsManager(t *testing.T) {
	db := newMemDB(user("M", ""), user("E", "M"))
	svc := newTestService(db)

	_, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "M", Manager: ManagerChange{Set: true, ID: "E"}})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
	assert.Equal(t, "hierarchy_cycle", appErr.Code)

	assert.Equal(t, "", db.users["M"].ManagerID)
	assert.Equal(t, "M", db.users["E"].ManagerID)
}

func TestUpdateUserRejectsSelfManagement(t *testing.T) {
	db := newMemDB(user("E", ""))
	svc := newTestService(db)

	_, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "E", Manager: ManagerChange{Set: true, ID: "E"}})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "self_management", appErr.Code)
	assert.Equal(t, 0, db.locked)
}

func TestUpdateUserReassignsAndClearsManager(t *testing.T) {
	db := newMemDB(user("A", ""), user("B", ""), user("C", "A"))
	svc := newTestService(db)

	result, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "C", Manager: ManagerChange{Set: true, ID: "B"}})
	require.NoError(t, err)
	assert.True(t, result.ManagerChanged())
	assert.Equal(t, "B", db.users["C"].ManagerID)

	_, err = svc.UpdateUser(context.Background(), UpdateInput{ID: "C", Manager: ManagerChange{Set: true}})
	require.NoError(t, err)
	assert.Equal(t, "", db.users["C"].ManagerID)
}

func TestUpdateUserLeavesManagerWhenAbsent(t *testing.T) {
	db := newMemDB(user("A", ""), user("C", "A"))
	guard := &fakeGuard{}
	svc := NewService(db, guard, nil, 0, nil)

	result, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "C", Department: strPtr("Eng")})
	require.NoError(t, err)
	assert.False(t, guard.called)
	assert.False(t, result.ManagerChanged())
	assert.Equal(t, "A", db.users["C"].ManagerID)
	assert.Equal(t, "Eng", db.users["C"].Department)
}

func TestUpdateUserNotFound(t *testing.T) {
	svc := newTestService(newMemDB())

	_, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "ghost", FirstName: strPtr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateUserValidation(t *testing.T) {
	svc := newTestService(newMemDB(user("A", "")))

	_, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "A", Role: strPtr("CEO")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateUser(context.Background(), UpdateInput{ID: "A", Email: strPtr("not-an-email")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// Display-name forms are rejected here just as the request validator does.
	_, err = svc.UpdateUser(context.Background(), UpdateInput{ID: "A", Email: strPtr("Alice <a@example.com>")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateUserEmailTaken(t *testing.T) {
	svc := newTestService(newMemDB(user("A", ""), user("B", "")))

	_, err := svc.UpdateUser(context.Background(), UpdateInput{ID: "A", Email: strPtr("B@example.com")})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "email_taken", appErr.Code)
}

func seededOrg() *memDB {
	db := newMemDB(user("admin", ""), user("M", "admin"), user("R1", "M"), user("R2", "M"), user("X", ""))
	db.goals = []goalRow{
		{ID: "g-m", EmployeeID: "M", ManagerID: "admin", CreatedByID: "M"},
		{ID: "g-r1", EmployeeID: "R1", CreatedByID: "R1"},
		{ID: "g-r2", EmployeeID: "R2", CreatedByID: "R2"},
		{ID: "g-x", EmployeeID: "X", CreatedByID: "X", UpdatedByID: "M"},
	}
	db.ratings = []ratingRow{
		{ID: "r-m", GoalID: "g-m", SelfRatedByID: "M"},
		{ID: "r-r1", GoalID: "g-r1", SelfRatedByID: "R1"},
		{ID: "r-r2", GoalID: "g-r2", SelfRatedByID: "R2"},
		{ID: "r-mgr", GoalID: "g-r1", ManagerRatedByID: "M"},
		{ID: "r-x", GoalID: "g-x", SelfRatedByID: "X"},
	}
	db.feedback = []feedbackRow{
		{ID: "f1", EmployeeID: "R1", ReviewerID: "M"},
		{ID: "f2", EmployeeID: "M", ReviewerID: "R1"},
		{ID: "f3", EmployeeID: "R1", ReviewerID: "R2"},
	}
	db.notifications = []notificationRow{{ID: "n1", UserID: "M"}, {ID: "n2", UserID: "R1"}}
	return db
}

func TestDeleteUserDetachesReports(t *testing.T) {
	db := seededOrg()
	svc := newTestService(db)

	result, err := svc.DeleteUser(context.Background(), admin, "M")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, result.State)
	assert.Equal(t, CascadeOrder(), db.calls)

	assert.NotContains(t, db.users, "M")
	assert.Equal(t, "", db.users["R1"].ManagerID)
	assert.Equal(t, "", db.users["R2"].ManagerID)

	var goalIDs []string
	for _, goal := range db.goals {
		goalIDs = append(goalIDs, goal.ID)
	}
	assert.Equal(t, []string{"g-r1", "g-r2"}, goalIDs)

	var ratingIDs []string
	for _, rating := range db.ratings {
		ratingIDs = append(ratingIDs, rating.ID)
	}
	assert.Equal(t, []string{"r-r1", "r-r2"}, ratingIDs)

	assert.Equal(t, []feedbackRow{{ID: "f3", EmployeeID: "R1", ReviewerID: "R2"}}, db.feedback)
	assert.Equal(t, []notificationRow{{ID: "n2", UserID: "R1"}}, db.notifications)

	assert.Equal(t, []StepResult{
		{Name: "ratings", RowsAffected: 3},
		{Name: "notifications", RowsAffected: 1},
		{Name: "feedback360", RowsAffected: 2},
		{Name: "goals", RowsAffected: 2},
		{Name: "direct_reports", RowsAffected: 2},
		{Name: "employee", RowsAffected: 1},
	}, result.Steps)
}

// Goals the deleted manager supervises go with them even when a report owns
// the goal; the report keeps the goals that never named the manager.
func TestDeleteUserRemovesReportGoalsItManages(t *testing.T) {
	db := seededOrg()
	db.goals[1].ManagerID = "M"
	svc := newTestService(db)

	result, err := svc.DeleteUser(context.Background(), admin, "M")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, result.State)

	var goalIDs []string
	for _, goal := range db.goals {
		goalIDs = append(goalIDs, goal.ID)
	}
	assert.Equal(t, []string{"g-r2"}, goalIDs)

	var ratingIDs []string
	for _, rating := range db.ratings {
		ratingIDs = append(ratingIDs, rating.ID)
	}
	assert.Equal(t, []string{"r-r2"}, ratingIDs)
	assert.Equal(t, "", db.users["R1"].ManagerID)
	assert.Contains(t, db.users, "R1")
}

func TestDeleteUserRollsBackEveryStep(t *testing.T) {
	for _, step := range CascadeOrder() {
		t.Run(step, func(t *testing.T) {
			db := seededOrg()
			before := db.state.clone()
			db.failStep = step
			svc := newTestService(db)

			result, err := svc.DeleteUser(context.Background(), admin, "M")
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindTransaction))
			assert.Contains(t, err.Error(), step+" exploded")
			assert.Equal(t, StateRolledBack, result.State)
			assert.Equal(t, before, db.state)
		})
	}
}

func TestDeleteUserCommitFailure(t *testing.T) {
	db := seededOrg()
	before := db.state.clone()
	db.commitErr = errors.New("serialization failure")
	svc := newTestService(db)

	result, err := svc.DeleteUser(context.Background(), admin, "M")
	assert.True(t, apperr.Is(err, apperr.KindTransaction))
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, before, db.state)
}

func TestDeleteUserNotFound(t *testing.T) {
	db := seededOrg()
	svc := newTestService(db)

	result, err := svc.DeleteUser(context.Background(), admin, "ghost")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, StateRolledBack, result.State)
	assert.Empty(t, db.calls)
}

func TestDeleteUserRejectsSelfDelete(t *testing.T) {
	db := seededOrg()
	svc := newTestService(db)

	_, err := svc.DeleteUser(context.Background(), admin, "admin")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, db.users, "admin")
}

func TestDeleteUserHeldLock(t *testing.T) {
	db := seededOrg()
	locker := lock.NewLocal()
	lease, err := locker.Obtain(context.Background(), "user-delete:M", time.Minute)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	svc := NewService(db, hierarchy.NewGuard(db), locker, time.Minute, nil)
	_, err = svc.DeleteUser(context.Background(), admin, "M")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "delete_in_progress", appErr.Code)
	assert.Contains(t, db.users, "M")
}
