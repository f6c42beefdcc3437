package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alejandrodnm/contestengine/internal/domain"
)

// UserStore implements ports.IdentityProvider and trading.Identity against
// the `users(auth_id, email, name, role)` boundary table. Bearer-token
// issuance/verification belongs to the external identity provider; this
// adapter only resolves an already-validated token's opaque auth_id to
// the email/role this engine cares about.
type UserStore struct {
	db *sql.DB
}

// Authenticate resolves bearerToken (treated as the row's auth_id) to the
// user's email and admin role.
func (s *UserStore) Authenticate(ctx context.Context, bearerToken string) (string, bool, error) {
	if bearerToken == "" {
		return "", false, domain.NewError(domain.ErrUnauthorized, "missing bearer token")
	}

	var email, role string
	err := s.db.QueryRowContext(ctx,
		`SELECT email, role FROM users WHERE auth_id = ?`, bearerToken).Scan(&email, &role)
	if err == sql.ErrNoRows {
		return "", false, domain.NewError(domain.ErrUnauthorized, "unknown bearer token")
	}
	if err != nil {
		return "", false, fmt.Errorf("storage.Authenticate: %w", err)
	}
	return email, role == "admin", nil
}

// DisplayName satisfies trading.Identity for the leaderboard builder,
// falling back to the email itself if the user row is missing.
func (s *UserStore) DisplayName(email string) string {
	var name string
	err := s.db.QueryRow(`SELECT name FROM users WHERE email = ?`, email).Scan(&name)
	if err != nil || name == "" {
		return email
	}
	return name
}

// Upsert creates or updates a user row; the tests use it to provision
// users.
func (s *UserStore) Upsert(ctx context.Context, authID, email, name, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (auth_id, email, name, role)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(auth_id) DO UPDATE SET
			email = excluded.email,
			name  = excluded.name,
			role  = excluded.role
	`, authID, email, name, role)
	if err != nil {
		return fmt.Errorf("storage.Upsert: %w", err)
	}
	return nil
}
