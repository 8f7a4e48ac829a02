package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"taskgate.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

func (s *Store) AppendAuditEntry(ctx context.Context, entry *audit.Entry) error {
	if s.db == nil {
		return errNoDatabase
	}
	meta := []byte("{}")
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		meta = b
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_logs (id, organization_id, user_id, action, entity_type, entity_id, metadata, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, nullIfEmpty(entry.OrganizationID), nullIfEmpty(entry.UserID), entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), meta, entry.CreatedAt)
	return translate(err)
}

// ListAudit returns one page of entries newest first and the number of matches.
func (s *Store) ListAudit(ctx context.Context, q audit.Query) ([]*audit.Entry, int, error) {
	if s.db == nil {
		return nil, 0, errNoDatabase
	}
	clause, args, ok := scopeClause(q.Scope, "", nil)
	if !ok {
		return []*audit.Entry{}, 0, nil
	}
	var conditions []string
	if clause != "" {
		conditions = append(conditions, clause)
	}
	if q.EntityType != "" {
		args = append(args, q.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if q.Action != "" {
		args = append(args, q.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " where " + strings.Join(conditions, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = audit.DefaultPageSize
	}
	args = append(args, limit, q.Offset)
	query := fmt.Sprintf(`
		select id, organization_id, user_id, action, entity_type, entity_id, metadata, created_at
		from audit_logs%s
		order by created_at desc, id desc
		limit $%d offset $%d`, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]*audit.Entry, 0)
	for rows.Next() {
		var (
			e                     audit.Entry
			orgID, userID, entity sql.NullString
			meta                  []byte
		)
		if err := rows.Scan(&e.ID, &orgID, &userID, &e.Action, &e.EntityType, &entity, &meta, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit log: %w", err)
		}
		e.OrganizationID = orgID.String
		e.UserID = userID.String
		e.EntityID = entity.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, 0, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit logs: %w", err)
	}
	return out, total, nil
}
