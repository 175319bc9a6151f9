package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/queryrun/query/internal/auth"
	"github.com/queryrun/query/internal/config"
)

// seedAdmin creates the initial admin user from QUERY_SERVER_ADMIN_EMAIL and
// QUERY_SERVER_ADMIN_PASSWORD on first startup, and sets the two
// capability flags the catalog always expects to find in config_option.
// Both steps are idempotent: a data directory that already has an admin
// user or options row is left untouched.
func (c *Catalog) seedAdmin(ctx context.Context, cfg config.AuthConfig) error {
	if err := c.seedConfigOption(ctx, "create_user", "1"); err != nil {
		return err
	}
	if err := c.seedConfigOption(ctx, "create_token", "1"); err != nil {
		return err
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var count int
	if err := c.Config.QueryRowContext(ctx, `SELECT COUNT(*) FROM user WHERE admin = 1`).Scan(&count); err != nil {
		return fmt.Errorf("checking for existing admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	_, err = c.Config.ExecContext(ctx, `
		INSERT INTO user (uuid, email, password_hash, admin, active)
		VALUES (?, ?, ?, 1, 1)
	`, uuid.New().String(), cfg.AdminEmail, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("inserting admin user: %w", err)
	}

	log.Info().Str("email", cfg.AdminEmail).Msg("seeded admin user")
	return nil
}

func (c *Catalog) seedConfigOption(ctx context.Context, name, value string) error {
	_, err := c.Config.ExecContext(ctx, `
		INSERT INTO config_option (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, value)
	if err != nil {
		return fmt.Errorf("seeding config option %q: %w", name, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "constraint failed"))
}
