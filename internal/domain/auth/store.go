package auth

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCredentialsNotFound = errors.New("credentials not found")

// Credentials are what login needs to verify a password and mint a token.
type Credentials struct {
	UserID       string
	Role         string
	PasswordHash string
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// CredentialsByEmail only returns active employees that have a password set.
func (s *Store) CredentialsByEmail(ctx context.Context, email string) (Credentials, error) {
	var creds Credentials
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, role, password_hash
    FROM employees
    WHERE lower(email) = $1 AND is_active AND password_hash IS NOT NULL
  `, strings.ToLower(strings.TrimSpace(email))).Scan(&creds.UserID, &creds.Role, &creds.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credentials{}, ErrCredentialsNotFound
	}
	if err != nil {
		return Credentials{}, errors.Wrap(err, "load credentials")
	}
	return creds, nil
}
