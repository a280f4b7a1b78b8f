package users

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

func (s *Store) GetUserForUpdateTx(ctx context.Context, tx pgx.Tx, userID string) (User, error) {
	var user User
	err := tx.QueryRow(ctx, `
    SELECT id::text, email, first_name, last_name, role, COALESCE(department, ''),
           COALESCE(manager_id::text, ''), is_active, created_at, updated_at
    FROM employees
    WHERE id::text = $1
    FOR UPDATE
  `, userID).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.Department,
		&user.ManagerID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

func (s *Store) UpdateUserTx(ctx context.Context, tx pgx.Tx, user User) (User, error) {
	err := tx.QueryRow(ctx, `
    UPDATE employees
    SET email = $1,
        first_name = $2,
        last_name = $3,
        role = $4,
        department = $5,
        manager_id = $6,
        is_active = $7,
        updated_at = now()
    WHERE id = $8
    RETURNING updated_at
  `, user.Email, user.FirstName, user.LastName, user.Role, nullIfEmpty(user.Department),
		nullIfEmpty(user.ManagerID), user.IsActive, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

func execTx(ctx context.Context, tx pgx.Tx, query string, args ...any) (int64, error) {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteRatingsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return execTx(ctx, tx, `
    DELETE FROM ratings
    WHERE self_rated_by_id = $1
       OR manager_rated_by_id = $1
       OR goal_id IN (
         SELECT id FROM goals
         WHERE employee_id = $1
            OR manager_id = $1
            OR created_by_id = $1
            OR updated_by_id = $1
            OR deleted_by_id = $1
       )
  `, userID)
}

func (s *Store) DeleteNotificationsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return execTx(ctx, tx, `
    DELETE FROM notifications
    WHERE user_id = $1
  `, userID)
}

func (s *Store) DeleteFeedbackTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return execTx(ctx, tx, `
    DELETE FROM feedback360
    WHERE reviewer_id = $1 OR employee_id = $1
  `, userID)
}

func (s *Store) DeleteGoalsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return execTx(ctx, tx, `
    DELETE FROM goals
    WHERE employee_id = $1
       OR manager_id = $1
       OR created_by_id = $1
       OR updated_by_id = $1
       OR deleted_by_id = $1
  `, userID)
}

func (s *Store) DetachReportsTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return execTx(ctx, tx, `
    UPDATE employees
    SET manager_id = NULL, updated_at = now()
    WHERE manager_id = $1
  `, userID)
}

func (s *Store) DeleteUserTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	return execTx(ctx, tx, `
    DELETE FROM employees
    WHERE id = $1
  `, userID)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
