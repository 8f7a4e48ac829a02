package pg

import (
	"context"
	"database/sql"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/ids"
)

const organizationColumns = `id, name, parent_organization_id, created_at, updated_at`

func scanOrganization(row rowScanner) (*auth.Organization, error) {
	var (
		org    auth.Organization
		parent sql.NullString
	)
	if err := row.Scan(&org.ID, &org.Name, &parent, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.ParentOrganizationID = parent.String
	return &org, nil
}

func (s *Store) CreateOrganization(ctx context.Context, org *auth.Organization) error {
	if s.db == nil {
		return errNoDatabase
	}
	_, err := s.db.ExecContext(ctx, `
		insert into organizations (id, name, parent_organization_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
	`, org.ID, org.Name, nullIfEmpty(org.ParentOrganizationID), org.CreatedAt, org.UpdatedAt)
	return translate(err)
}

func (s *Store) FindOrganizationByID(ctx context.Context, id string) (*auth.Organization, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	if !ids.Valid(id) {
		return nil, auth.ErrNotFound
	}
	org, err := scanOrganization(s.db.QueryRowContext(ctx, `select `+organizationColumns+` from organizations where id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return org, nil
}

func (s *Store) FindOrganizationByName(ctx context.Context, name string) (*auth.Organization, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	org, err := scanOrganization(s.db.QueryRowContext(ctx, `select `+organizationColumns+` from organizations where name = $1`, name))
	if err != nil {
		return nil, translate(err)
	}
	return org, nil
}

// ListOrganizations returns every organization ordered by name.
func (s *Store) ListOrganizations(ctx context.Context) ([]*auth.Organization, error) {
	if s.db == nil {
		return nil, errNoDatabase
	}
	rows, err := s.db.QueryContext(ctx, `select `+organizationColumns+` from organizations order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*auth.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
