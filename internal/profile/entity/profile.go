package entity

import "time"

// Profile extends a backend identity with gateway-owned fields. Rows are
// provisioned by the backend alongside identity creation; this service only
// reads and updates them.
type Profile struct {
	ID        string     `db:"id" json:"id"`
	Username  *string    `db:"username" json:"username"`
	FullName  *string    `db:"full_name" json:"full_name"`
	IsAdmin   bool       `db:"is_admin" json:"is_admin"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at"`
}

// Update is a partial profile mutation. Nil means "do not touch"; a
// non-nil pointer to a zero value still writes that value.
type Update struct {
	Username *string
	FullName *string
	IsAdmin  *bool
}

// Empty reports whether the update would touch no columns.
func (u Update) Empty() bool {
	return u.Username == nil && u.FullName == nil && u.IsAdmin == nil
}
