package db

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfcycle/internal/domain/auth"
	"perfcycle/internal/platform/config"
)

// DefaultCompetencies are inserted once so cycles have something to reference.
var DefaultCompetencies = []string{"Communication", "Collaboration", "Delivery", "Leadership", "Technical depth"}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensureCompetencies(ctx, pool); err != nil {
		return errors.Wrap(err, "seed competencies")
	}
	if err := ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	return nil
}

func ensureCompetencies(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range DefaultCompetencies {
		if _, err := pool.Exec(ctx, "INSERT INTO competencies (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name); err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO employees (email, first_name, last_name, password_hash, role)
    VALUES ($1, 'System', 'Admin', $2, $3)
  `, email, hash, auth.RoleAdmin)
	return err
}
