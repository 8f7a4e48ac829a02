package audit

import (
	"context"
	"log/slog"
	"time"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/ids"
)

// Recorder appends audit entries on behalf of the domain services. A failed
// append is logged and never fails the operation being audited.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder returns a recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// Record stores an entry authored by actor. ID, UserID and CreatedAt are filled in.
func (r *Recorder) Record(ctx context.Context, actor auth.Principal, entry Entry) {
	if r == nil || r.store == nil {
		return
	}
	entry.ID = ids.New()
	entry.UserID = actor.ID
	entry.CreatedAt = r.now().UTC()
	if err := r.store.AppendAuditEntry(ctx, &entry); err != nil {
		r.logger.WarnContext(ctx, "audit append failed",
			slog.String("action", entry.Action),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
		return
	}
	fields := map[string]any{
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
	}
	if entry.OrganizationID != "" {
		fields["organization_id"] = entry.OrganizationID
	}
	if err := logEvent(ctx, r.logger, entry.Action, fields); err != nil {
		r.logger.WarnContext(ctx, "audit event not logged",
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}
