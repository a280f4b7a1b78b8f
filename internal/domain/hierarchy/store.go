package hierarchy

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// lockKey is the advisory lock id shared by every manager reassignment.
const lockKey int64 = 0x6d67725f68696572

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) LockTx(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey)
	return err
}

func (s *Store) EdgesTx(ctx context.Context, tx pgx.Tx) ([]Edge, error) {
	rows, err := tx.Query(ctx, `
    SELECT id::text, COALESCE(manager_id::text, '')
    FROM employees
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var edge Edge
		if err := rows.Scan(&edge.EmployeeID, &edge.ManagerID); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}
