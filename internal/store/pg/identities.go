package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/ids"
)

var _ auth.Store = (*Store)(nil)

const identityColumns = `id, name, email, password_hash, role, organization_id, requires_password_change, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*auth.Identity, error) {
	var (
		identity auth.Identity
		role     string
		orgID    sql.NullString
	)
	if err := row.Scan(&identity.ID, &identity.Name, &identity.Email, &identity.PasswordHash, &role, &orgID,
		&identity.RequiresPasswordChange, &identity.CreatedAt, &identity.UpdatedAt); err != nil {
		return nil, err
	}
	// Unknown role text decodes to RoleUnknown, which holds no permissions.
	identity.Role, _ = auth.ParseRole(role)
	identity.OrganizationID = orgID.String
	return &identity, nil
}

func (s *Store) FindIdentityByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	row := s.db.QueryRowContext(ctx, `select `+identityColumns+` from users where email = $1`, auth.NormalizeEmail(email))
	identity, err := scanIdentity(row)
	if err != nil {
		return nil, translate(err)
	}
	return identity, nil
}

func (s *Store) FindIdentityByID(ctx context.Context, id string) (*auth.Identity, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	if !ids.Valid(id) {
		return nil, auth.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `select `+identityColumns+` from users where id = $1`, id)
	identity, err := scanIdentity(row)
	if err != nil {
		return nil, translate(err)
	}
	return identity, nil
}

func (s *Store) CreateIdentity(ctx context.Context, identity *auth.Identity) error {
	if s.db == nil {
		return errNoDatabase
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, name, email, password_hash, role, organization_id, requires_password_change, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, identity.ID, identity.Name, auth.NormalizeEmail(identity.Email), identity.PasswordHash, identity.Role.String(),
		nullIfEmpty(identity.OrganizationID), identity.RequiresPasswordChange, identity.CreatedAt, identity.UpdatedAt)
	return translate(err)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string, requiresChange bool) error {
	if s.db == nil {
		return errNoDatabase
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set password_hash = $2, requires_password_change = $3, updated_at = now()
		where id = $1
	`, id, passwordHash, requiresChange)
	if err != nil {
		return translate(err)
	}
	return expectOne(res)
}

// ListIdentities returns matching identities, oldest first.
func (s *Store) ListIdentities(ctx context.Context, filter auth.IdentityFilter) ([]*auth.Identity, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	var (
		conditions []string
		args       []any
	)
	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, r.String())
		}
		args = append(args, roles)
		conditions = append(conditions, fmt.Sprintf("role = any($%d)", len(args)))
	}
	query := `select ` + identityColumns + ` from users`
	if len(conditions) > 0 {
		query += ` where ` + strings.Join(conditions, " and ")
	}
	query += ` order by created_at asc, id asc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*auth.Identity, 0)
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func expectOne(res sql.Result) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}
