package users

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"perfcycle/internal/domain/hierarchy"
)

type goalRow struct {
	ID, EmployeeID, ManagerID, CreatedByID, UpdatedByID, DeletedByID string
}

type ratingRow struct {
	ID, GoalID, SelfRatedByID, ManagerRatedByID string
}

type feedbackRow struct {
	ID, EmployeeID, ReviewerID string
}

type notificationRow struct {
	ID, UserID string
}

type state struct {
	users         map[string]User
	goals         []goalRow
	ratings       []ratingRow
	feedback      []feedbackRow
	notifications []notificationRow
}

func (s state) clone() state {
	users := make(map[string]User, len(s.users))
	for id, user := range s.users {
		users[id] = user
	}
	return state{
		users:         users,
		goals:         append([]goalRow(nil), s.goals...),
		ratings:       append([]ratingRow(nil), s.ratings...),
		feedback:      append([]feedbackRow(nil), s.feedback...),
		notifications: append([]notificationRow(nil), s.notifications...),
	}
}

// memDB applies writes directly and restores the snapshot taken at BeginTx
// when the transaction rolls back.
type memDB struct {
	state
	snapshot  *state
	failStep  string
	calls     []string
	commitErr error
	locked    int
}

type memTx struct {
	pgx.Tx
	db     *memDB
	closed bool
}

func (t *memTx) Commit(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	if t.db.commitErr != nil {
		return t.db.commitErr
	}
	t.closed = true
	t.db.snapshot = nil
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.db.snapshot != nil {
		t.db.state = *t.db.snapshot
		t.db.snapshot = nil
	}
	return nil
}

func newMemDB(users ...User) *memDB {
	db := &memDB{state: state{users: map[string]User{}}}
	for _, user := range users {
		db.users[user.ID] = user
	}
	return db
}

func (db *memDB) BeginTx(context.Context) (pgx.Tx, error) {
	snap := db.state.clone()
	db.snapshot = &snap
	return &memTx{db: db}, nil
}

func (db *memDB) GetUserForUpdateTx(_ context.Context, _ pgx.Tx, id string) (User, error) {
	user, ok := db.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (db *memDB) UpdateUserTx(_ context.Context, _ pgx.Tx, user User) (User, error) {
	for id, other := range db.users {
		if id != user.ID && other.Email == user.Email {
			return User{}, ErrEmailTaken
		}
	}
	db.users[user.ID] = user
	return user, nil
}

func (db *memDB) step(name string) error {
	db.calls = append(db.calls, name)
	if db.failStep == name {
		return errors.New(name + " exploded")
	}
	return nil
}

func (db *memDB) goalIDsOf(userID string) map[string]bool {
	out := map[string]bool{}
	for _, goal := range db.goals {
		if goal.references(userID) {
			out[goal.ID] = true
		}
	}
	return out
}

func (g goalRow) references(userID string) bool {
	return g.EmployeeID == userID || g.ManagerID == userID || g.CreatedByID == userID ||
		g.UpdatedByID == userID || g.DeletedByID == userID
}

func (db *memDB) DeleteRatingsTx(_ context.Context, _ pgx.Tx, userID string) (int64, error) {
	if err := db.step("ratings"); err != nil {
		return 0, err
	}
	goals := db.goalIDsOf(userID)
	var kept []ratingRow
	var n int64
	for _, rating := range db.ratings {
		if rating.SelfRatedByID == userID || rating.ManagerRatedByID == userID || goals[rating.GoalID] {
			n++
			continue
		}
		kept = append(kept, rating)
	}
	db.ratings = kept
	return n, nil
}

func (db *memDB) DeleteNotificationsTx(_ context.Context, _ pgx.Tx, userID string) (int64, error) {
	if err := db.step("notifications"); err != nil {
		return 0, err
	}
	var kept []notificationRow
	var n int64
	for _, row := range db.notifications {
		if row.UserID == userID {
			n++
			continue
		}
		kept = append(kept, row)
	}
	db.notifications = kept
	return n, nil
}

func (db *memDB) DeleteFeedbackTx(_ context.Context, _ pgx.Tx, userID string) (int64, error) {
	if err := db.step("feedback360"); err != nil {
		return 0, err
	}
	var kept []feedbackRow
	var n int64
	for _, row := range db.feedback {
		if row.EmployeeID == userID || row.ReviewerID == userID {
			n++
			continue
		}
		kept = append(kept, row)
	}
	db.feedback = kept
	return n, nil
}

func (db *memDB) DeleteGoalsTx(_ context.Context, _ pgx.Tx, userID string) (int64, error) {
	if err := db.step("goals"); err != nil {
		return 0, err
	}
	for _, rating := range db.ratings {
		for _, goal := range db.goals {
			if goal.ID == rating.GoalID && goal.references(userID) {
				return 0, errors.New("ratings.goal_id foreign key violation")
			}
		}
	}
	var kept []goalRow
	var n int64
	for _, goal := range db.goals {
		if goal.references(userID) {
			n++
			continue
		}
		kept = append(kept, goal)
	}
	db.goals = kept
	return n, nil
}

func (db *memDB) DetachReportsTx(_ context.Context, _ pgx.Tx, userID string) (int64, error) {
	if err := db.step("direct_reports"); err != nil {
		return 0, err
	}
	var n int64
	for id, user := range db.users {
		if user.ManagerID == userID {
			user.ManagerID = ""
			db.users[id] = user
			n++
		}
	}
	return n, nil
}

func (db *memDB) DeleteUserTx(_ context.Context, _ pgx.Tx, userID string) (int64, error) {
	if err := db.step("employee"); err != nil {
		return 0, err
	}
	for _, user := range db.users {
		if user.ManagerID == userID {
			return 0, errors.New("employees.manager_id foreign key violation")
		}
	}
	if _, ok := db.users[userID]; !ok {
		return 0, nil
	}
	delete(db.users, userID)
	return 1, nil
}

func (db *memDB) userIDs() []string {
	out := make([]string, 0, len(db.users))
	for id := range db.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type fakeGuard struct {
	err    error
	called bool
}

func (g *fakeGuard) CheckTx(context.Context, pgx.Tx, string, string) error {
	g.called = true
	return g.err
}

func (db *memDB) LockTx(context.Context, pgx.Tx) error {
	db.locked++
	return nil
}

func (db *memDB) EdgesTx(context.Context, pgx.Tx) ([]hierarchy.Edge, error) {
	edges := make([]hierarchy.Edge, 0, len(db.users))
	for _, id := range db.userIDs() {
		edges = append(edges, hierarchy.Edge{EmployeeID: id, ManagerID: db.users[id].ManagerID})
	}
	return edges, nil
}
