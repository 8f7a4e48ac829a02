package audit

import (
	"context"
	"fmt"
	"strings"

	"taskgate.org/internal/auth"
	"taskgate.org/internal/authz"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListRequest is a page query. Page and Limit default when zero.
// OrganizationID is honoured for super admins only.
type ListRequest struct {
	Page           int
	Limit          int
	EntityType     string
	Action         string
	OrganizationID string
}

// Page is one page of entries.
type Page struct {
	Data  []*Entry `json:"data"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// Service answers scoped audit queries.
type Service struct {
	store Store
	gate  *authz.Gate
}

func NewService(store Store, gate *authz.Gate) *Service {
	if gate == nil {
		gate = authz.NewGate(nil)
	}
	return &Service{store: store, gate: gate}
}

// List returns the entries actor may see, newest first.
func (s *Service) List(ctx context.Context, actor auth.Principal, req ListRequest) (Page, error) {
	if err := s.gate.Authorize(ctx, actor, auth.PermViewAudit, nil).Err(); err != nil {
		return Page{}, err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = DefaultPageSize
	}
	if req.Page < 1 {
		return Page{}, fmt.Errorf("%w: page must be at least 1", auth.ErrInvalidInput)
	}
	if req.Limit < 1 || req.Limit > MaxPageSize {
		return Page{}, fmt.Errorf("%w: limit must be between 1 and %d", auth.ErrInvalidInput, MaxPageSize)
	}

	page := Page{Data: []*Entry{}, Page: req.Page, Limit: req.Limit}
	scope := authz.Resolve(actor, authz.Audit, req.OrganizationID)
	if scope.Empty() {
		return page, nil
	}
	entries, total, err := s.store.ListAudit(ctx, Query{
		Scope:      scope,
		EntityType: strings.TrimSpace(req.EntityType),
		Action:     strings.TrimSpace(req.Action),
		Limit:      req.Limit,
		Offset:     (req.Page - 1) * req.Limit,
	})
	if err != nil {
		return Page{}, err
	}
	if entries != nil {
		page.Data = entries
	}
	page.Total = total
	return page, nil
}
