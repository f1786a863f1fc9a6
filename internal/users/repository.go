package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shepherd-hq/shepherd/internal/platform/db"
	"github.com/shepherd-hq/shepherd/internal/shared"
)

const userColumns = `id, name, email, password_hash, email_verified_at, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for accounts and their
// role assignments.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository on a pool or transaction.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// FindByEmail loads an account by normalised email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, shared.NormalizeEmail(email))
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

// FindByID loads an account by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

// FirstOrCreate returns the account keyed by email, creating it from acct
// when absent. Attributes of an existing account are never modified. The
// boolean reports whether a row was created.
func (r *Repository) FirstOrCreate(ctx context.Context, acct NewAccount) (User, bool, error) {
	email := shared.NormalizeEmail(acct.Email)
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, email_verified_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING `+userColumns, acct.Name, email, acct.PasswordHash, acct.EmailVerifiedAt)
	user, err := scanUser(row)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, fmt.Errorf("users: insert %s: %w", email, err)
	}
	user, err = r.FindByEmail(ctx, email)
	if err != nil {
		return User{}, false, fmt.Errorf("users: load %s: %w", email, err)
	}
	return user, false, nil
}

// HasRole reports whether the account holds the role with the exact name.
func (r *Repository) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	var held bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN roles ro ON ro.id = ur.role_id
			WHERE ur.user_id = $1 AND ro.name = $2
		)`, userID, roleName).Scan(&held)
	return held, err
}

// AssignRole grants the named role to the account. Assigning a role already
// held is a no-op; assigning a role that is not stored fails.
func (r *Repository) AssignRole(ctx context.Context, userID int64, roleName string) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT DO NOTHING`, userID, roleName)
	if err != nil {
		return fmt.Errorf("users: assign %q to %d: %w", roleName, userID, err)
	}
	if tag.RowsAffected() == 0 {
		held, err := r.HasRole(ctx, userID, roleName)
		if err != nil {
			return err
		}
		if !held {
			return fmt.Errorf("users: assign %q: %w", roleName, shared.ErrNotFound)
		}
	}
	return nil
}

// RoleNames returns the names of every role held by the account.
func (r *Repository) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ro.name FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ro.id`, userID)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return names, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerifiedAt, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
