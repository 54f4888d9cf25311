package repository

import (
	"context"
	"database/sql"

	"github.com/kanrihq/kanri-backend/internal/model"
)

// RoleRepo provides role lookups on the `roles` table.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// FindByName fetches a role by its unique name.
func (r *RoleRepo) FindByName(ctx context.Context, name string) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name FROM roles WHERE name=? LIMIT 1", name).
		Scan(&role.ID, &role.Name)
	if err == sql.ErrNoRows {
		return model.Role{}, ErrNotFound
	}
	return role, err
}

// EnsureRole inserts a role row if it does not already exist. Used by the
// startup seeder; INSERT IGNORE keeps it idempotent.
func (r *RoleRepo) EnsureRole(ctx context.Context, name string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO roles (name) VALUES (?)", name)
	return err
}
