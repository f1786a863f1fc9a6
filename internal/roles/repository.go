package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shepherd-hq/shepherd/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository on a pool or transaction.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListRoles returns all stored roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, guard_name, created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.GuardName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// EnsureRole inserts the role unless a row with the same name exists. The
// boolean reports whether a row was created. Existing rows are left as is.
func (r *Repository) EnsureRole(ctx context.Context, name, guard string) (Record, bool, error) {
	var rec Record
	err := r.db.QueryRow(ctx, `
		INSERT INTO roles (name, guard_name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, guard_name, created_at, updated_at`, name, guard).
		Scan(&rec.ID, &rec.Name, &rec.GuardName, &rec.CreatedAt, &rec.UpdatedAt)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, fmt.Errorf("roles: insert %q: %w", name, err)
	}
	err = r.db.QueryRow(ctx, `SELECT id, name, guard_name, created_at, updated_at FROM roles WHERE name = $1`, name).
		Scan(&rec.ID, &rec.Name, &rec.GuardName, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, false, fmt.Errorf("roles: load %q: %w", name, err)
	}
	return rec, false, nil
}
