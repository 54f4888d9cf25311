package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kanrihq/kanri-backend/internal/model"
	"github.com/kanrihq/kanri-backend/internal/repository"
	"github.com/kanrihq/kanri-backend/internal/utils"
)

// Seed makes sure the closed role set exists and, when enabled, creates the
// default admin account. Registration hard-fails when its target role row
// is absent, so the roles must be in place before the server accepts
// traffic. Seeding is idempotent.
func Seed(ctx context.Context, members *repository.MemberRepo, roles *repository.RoleRepo, adminPassword string, bcryptCost int, seedAdmin bool) error {
	for _, name := range []string{model.RoleAdmin, model.RoleCustomer, model.RoleSupport} {
		if err := roles.EnsureRole(ctx, name); err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
	}
	if !seedAdmin {
		return nil
	}

	exists, err := members.ExistsByUsername(ctx, "admin")
	if err != nil {
		return fmt.Errorf("check admin account: %w", err)
	}
	if exists {
		return nil
	}

	adminRole, err := roles.FindByName(ctx, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}
	hash, err := utils.HashPassword(adminPassword, bcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = members.Create(ctx, model.Member{
		Username:     "admin",
		Email:        "admin@kanri.sys",
		PasswordHash: hash,
		FullName:     "System Administrator",
		Phone:        "0000000000",
		Address:      "System HQ",
		Gender:       "Other",
		RoleID:       adminRole.ID,
		RoleName:     adminRole.Name,
		IsActive:     true,
	})
	if errors.Is(err, repository.ErrDuplicateUsername) || errors.Is(err, repository.ErrDuplicateEmail) {
		// Another replica won the race; nothing to do.
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	log.Printf("seeded default admin account")
	return nil
}
