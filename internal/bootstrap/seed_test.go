package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/store/memory"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	creds := auth.NewCredentialManager(bcrypt.MinCost)
	opts := Options{
		Organizations:      DefaultOrganizations,
		SuperAdminEmail:    "SuperAdmin@Platform.com",
		SuperAdminPassword: "seed-password-1",
	}

	report, err := Seed(ctx, store, creds, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOrganizations, report.OrganizationsCreated)
	assert.True(t, report.SuperAdminCreated)

	report, err = Seed(ctx, store, creds, opts, nil)
	require.NoError(t, err)
	assert.Empty(t, report.OrganizationsCreated)
	assert.False(t, report.SuperAdminCreated)

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, len(DefaultOrganizations))

	sa, err := store.FindIdentityByEmail(ctx, "superadmin@platform.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSuperAdmin, sa.Role)
	assert.Empty(t, sa.OrganizationID)
	assert.True(t, creds.Verify("seed-password-1", sa.PasswordHash))
}

func TestSeedSkipsSuperAdminWithoutPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	store := memory.New()

	report, err := Seed(context.Background(), store, auth.NewCredentialManager(bcrypt.MinCost), Options{
		SuperAdminEmail: "root@platform.test",
	}, logger)
	require.NoError(t, err)
	assert.False(t, report.SuperAdminCreated)
	assert.Contains(t, buf.String(), "super admin not seeded")

	_, err = store.FindIdentityByEmail(context.Background(), "root@platform.test")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestSeedNeverLogsPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := Seed(context.Background(), memory.New(), auth.NewCredentialManager(bcrypt.MinCost), Options{
		Organizations:      []string{"Acme"},
		SuperAdminEmail:    "root@platform.test",
		SuperAdminPassword: "do-not-log-me",
	}, logger)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "do-not-log-me")
}

func TestSeedRejectsEmailHeldByOtherRole(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateOrganization(ctx, &auth.Organization{ID: "org-a", Name: "Acme"}))
	require.NoError(t, store.CreateIdentity(ctx, &auth.Identity{ID: "u1", Email: "root@platform.test", Role: auth.RoleUser, OrganizationID: "org-a"}))

	report, err := Seed(ctx, store, auth.NewCredentialManager(bcrypt.MinCost), Options{
		Organizations:      []string{"Acme", "Beta"},
		SuperAdminEmail:    "root@platform.test",
		SuperAdminPassword: "seed-password-1",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"Beta"}, report.OrganizationsCreated)
	assert.False(t, report.SuperAdminCreated)
}
