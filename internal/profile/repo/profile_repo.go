package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/harborgate/admin-api/internal/profile/entity"
)

// ProfileRepo provides data access for the profiles table using sqlx.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// EnsureTable creates the profiles table if not exists (idempotent).
// This is a convenience for early development; in a real deployment the
// backend provisions this table and a trigger inserts a row per identity.
func (r *ProfileRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS profiles (
  id UUID PRIMARY KEY,
  username TEXT UNIQUE,
  full_name TEXT,
  is_admin BOOLEAN NOT NULL DEFAULT false,
  updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_profiles_username ON profiles(username);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// IsAdmin returns the admin flag for an identity id. A missing row surfaces
// as sql.ErrNoRows; callers treat any error as not-admin.
func (r *ProfileRepo) IsAdmin(ctx context.Context, id string) (bool, error) {
	var isAdmin bool
	const q = `SELECT is_admin FROM profiles WHERE id=$1`
	if err := r.db.GetContext(ctx, &isAdmin, q, id); err != nil {
		return false, err
	}
	return isAdmin, nil
}

// GetByID fetches the full profile row for an identity id.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	var p entity.Profile
	const q = `SELECT id, username, full_name, is_admin, updated_at FROM profiles WHERE id=$1`
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies a partial update, writing only the columns set in u.
// A no-op update returns nil without touching the database.
func (r *ProfileRepo) Update(ctx context.Context, id string, u entity.Update) error {
	if u.Empty() {
		return nil
	}
	sets := make([]string, 0, 4)
	args := make([]any, 0, 4)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if u.Username != nil {
		add("username", *u.Username)
	}
	if u.FullName != nil {
		add("full_name", *u.FullName)
	}
	if u.IsAdmin != nil {
		add("is_admin", *u.IsAdmin)
	}
	sets = append(sets, "updated_at=NOW()")

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE profiles SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("profile %s: no row updated", id)
	}
	return nil
}
