// Package bootstrap seeds the default organizations and the platform super
// admin. Seeding is idempotent and runs once at process start, outside the
// authorization core.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/ids"
)

// DefaultOrganizations are created on an empty installation.
var DefaultOrganizations = []string{"Ryzen", "Acme Corp", "TechFlow", "Global Solutions", "NextGen Inc"}

// Options selects what to seed. An empty SuperAdminPassword skips the super admin.
type Options struct {
	Organizations      []string
	SuperAdminEmail    string
	SuperAdminName     string
	SuperAdminPassword string
}

// Report summarizes a seeding run.
type Report struct {
	OrganizationsCreated []string
	SuperAdminCreated    bool
}

// Seed creates whatever is missing. Existing records are left untouched, so
// repeated runs converge. Individual failures are logged and returned joined.
func Seed(ctx context.Context, store auth.Store, creds *auth.CredentialManager, opts Options, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		report Report
		errs   []error
	)
	now := time.Now().UTC()

	for _, name := range opts.Organizations {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		created, err := seedOrganization(ctx, store, name, now)
		if err != nil {
			logger.ErrorContext(ctx, "seed organization failed", slog.String("name", name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("organization %q: %w", name, err))
			continue
		}
		if created {
			report.OrganizationsCreated = append(report.OrganizationsCreated, name)
			logger.InfoContext(ctx, "seeded organization", slog.String("name", name))
		}
	}

	email := auth.NormalizeEmail(opts.SuperAdminEmail)
	switch {
	case email == "":
	case opts.SuperAdminPassword == "":
		logger.WarnContext(ctx, "super admin not seeded: no password configured", slog.String("email", email))
	default:
		created, err := seedSuperAdmin(ctx, store, creds, email, opts.SuperAdminName, opts.SuperAdminPassword, now)
		if err != nil {
			logger.ErrorContext(ctx, "seed super admin failed", slog.String("email", email), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("super admin: %w", err))
			break
		}
		report.SuperAdminCreated = created
		if created {
			logger.InfoContext(ctx, "seeded super admin", slog.String("email", email))
		}
	}
	return report, errors.Join(errs...)
}

func seedOrganization(ctx context.Context, store auth.OrganizationStore, name string, now time.Time) (bool, error) {
	_, err := store.FindOrganizationByName(ctx, name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, auth.ErrNotFound) {
		return false, err
	}
	err = store.CreateOrganization(ctx, &auth.Organization{ID: ids.New(), Name: name, CreatedAt: now, UpdatedAt: now})
	if errors.Is(err, auth.ErrOrganizationNameTaken) {
		return false, nil
	}
	return err == nil, err
}

func seedSuperAdmin(ctx context.Context, store auth.IdentityStore, creds *auth.CredentialManager, email, name, password string, now time.Time) (bool, error) {
	existing, err := store.FindIdentityByEmail(ctx, email)
	if err == nil {
		if existing.Role != auth.RoleSuperAdmin {
			return false, fmt.Errorf("%s exists with role %s", email, existing.Role)
		}
		return false, nil
	}
	if !errors.Is(err, auth.ErrNotFound) {
		return false, err
	}
	hash, err := creds.Hash(password)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Super Admin"
	}
	err = store.CreateIdentity(ctx, &auth.Identity{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, auth.ErrEmailAlreadyExists) {
		return false, nil
	}
	return err == nil, err
}
