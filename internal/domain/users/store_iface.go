package users

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// CascadeStore removes or detaches everything that references a user. Every
// method reports the rows it touched.
type CascadeStore interface {
	DeleteRatingsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
	DeleteNotificationsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
	DeleteFeedbackTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
	DeleteGoalsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
	DetachReportsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
	DeleteUserTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
}

type StoreAPI interface {
	CascadeStore
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetUserForUpdateTx(ctx context.Context, tx pgx.Tx, userID string) (User, error)
	UpdateUserTx(ctx context.Context, tx pgx.Tx, user User) (User, error)
}

// HierarchyGuard validates a manager change inside the update transaction.
type HierarchyGuard interface {
	CheckTx(ctx context.Context, tx pgx.Tx, subjectID, proposedManagerID string) error
}
