package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/smartq/internal/config"
	"github.com/geocoder89/smartq/internal/domain/user"
	"github.com/geocoder89/smartq/internal/security"
	"github.com/google/uuid"
)

type adminStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Save(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin once. An existing account
// with that email is left untouched.
func EnsureAdminUser(ctx context.Context, users adminStore, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := security.NormalizeEmail(cfg.AdminEmail)

	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}

	u, err := users.Save(ctx, user.User{
		ID:                  uuid.NewString(),
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		EmailVerified:       true,
		Role:                user.RoleAdmin,
		AssignedResourceIDs: []string{},
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "admin user seeded", "email", email, "user_id", u.ID)
	return nil
}
