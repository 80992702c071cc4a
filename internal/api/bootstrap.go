package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"clinicdesk.io/clinicdesk/internal/dal"
)

// Default admin credentials seeded on first startup. Operators are
// expected to change the password after the first login.
const (
	seedAdminName     = "Admin"
	seedAdminPassword = "admin123"
)

// SeedAdmin creates the default admin account if no user holds the
// admin email yet. Safe to run on every startup.
func SeedAdmin(ctx context.Context, users *dal.UserModel) error {
	_, err := users.GetByEmail(ctx, DefaultAdmin)
	if err == nil {
		log.Debug().Str("email", DefaultAdmin).Msg("Admin user already present, skipping seed")
		return nil
	}
	if !errors.Is(err, dal.ErrNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := dal.User{
		Name:         seedAdminName,
		Email:        DefaultAdmin,
		PasswordHash: string(hash),
		Role:         dal.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, &admin); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	log.Info().Str("email", DefaultAdmin).Msg("Seeded default admin user")
	return nil
}
