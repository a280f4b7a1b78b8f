package users

import "time"

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	ManagerID  string    `json:"managerId,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ManagerChange distinguishes "leave unchanged" from "clear" (Set with an
// empty ID) and "assign".
type ManagerChange struct {
	Set bool
	ID  string
}

type UpdateInput struct {
	ID         string
	Email      *string
	FirstName  *string
	LastName   *string
	Role       *string
	Department *string
	IsActive   *bool
	Manager    ManagerChange
}

type UpdateResult struct {
	Before User
	After  User
}

func (r UpdateResult) ManagerChanged() bool {
	return r.Before.ManagerID != r.After.ManagerID
}

type DeleteState string

const (
	StatePending       DeleteState = "PENDING"
	StateInTransaction DeleteState = "IN_TRANSACTION"
	StateCommitted     DeleteState = "COMMITTED"
	StateRolledBack    DeleteState = "ROLLED_BACK"
)

type StepResult struct {
	Name         string `json:"name"`
	RowsAffected int64  `json:"rowsAffected"`
}

type DeleteResult struct {
	UserID string       `json:"id"`
	State  DeleteState  `json:"state"`
	Steps  []StepResult `json:"steps"`
}
