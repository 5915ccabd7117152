package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
)

// Admin roles checked by the admin routes.
const (
	RoleManageLoans = "CanManageLoans"
	RoleManageUsers = "CanManageUsers"
	RoleViewAudit   = "CanViewAudit"
)

type Admin struct {
	UserID  string
	IsSuper bool
	Roles   []string
}

// Can reports whether the admin may act under role. Super admins hold every
// role.
func (a Admin) Can(role string) bool {
	return a.IsSuper || role == "" || slices.Contains(a.Roles, role)
}

type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

// Lookup loads the admin record for userID. The boolean is false when the
// user is not an admin.
func (s *AdminStore) Lookup(ctx context.Context, userID string) (Admin, bool, error) {
	admin := Admin{UserID: userID}
	err := s.db.GetContext(ctx, &admin.IsSuper, `SELECT is_super FROM admins WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, false, nil
	}
	if err != nil {
		return Admin{}, false, err
	}
	roles := []string{}
	if err := s.db.SelectContext(ctx, &roles, `
		SELECT role
		FROM admin_roles
		WHERE admin_user_id = $1
		ORDER BY role
	`, userID); err != nil {
		return Admin{}, false, err
	}
	admin.Roles = roles
	return admin, true, nil
}

func (s *AdminStore) CreateAdmin(ctx context.Context, tx Execer, userID string, isSuper bool, createdBy *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admins (user_id, is_super, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, isSuper, createdBy)
	return err
}

func (s *AdminStore) GrantRole(ctx context.Context, tx Execer, adminUserID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admin_roles (admin_user_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, adminUserID, role)
	return err
}

// HasAnyAdmin lets the first registered user bootstrap as super admin.
func (s *AdminStore) HasAnyAdmin(ctx context.Context, tx Getter) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM admins)`)
	return exists, err
}
