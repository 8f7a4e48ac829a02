package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskgate.org/internal/audit"
	"taskgate.org/internal/auth"
	"taskgate.org/internal/tasks"
)

type createTaskRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	Description    string `json:"description" validate:"max=2000"`
	Status         string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Category       string `json:"category" validate:"omitempty,oneof=work personal"`
	OrderIndex     int    `json:"orderIndex"`
	OrganizationID string `json:"organizationId"`
	AssignedToID   string `json:"assignedToId"`
}

// updateTaskRequest leaves absent fields unchanged; "assignedToId": "" clears
// the assignment.
type updateTaskRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	Status       *string `json:"status"`
	Category     *string `json:"category"`
	OrderIndex   *int    `json:"orderIndex"`
	AssignedToID *string `json:"assignedToId"`
}

func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Tasks.List(r.Context(), principal(r), r.URL.Query().Get("organizationId"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.svc.Tasks.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	task, err := a.svc.Tasks.Create(r.Context(), principal(r), tasks.CreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         tasks.Status(req.Status),
		Category:       tasks.Category(req.Category),
		OrderIndex:     req.OrderIndex,
		OrganizationID: req.OrganizationID,
		AssignedToID:   req.AssignedToID,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	in := tasks.UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		OrderIndex:   req.OrderIndex,
		AssignedToID: req.AssignedToID,
	}
	if req.Status != nil {
		status := tasks.Status(*req.Status)
		in.Status = &status
	}
	if req.Category != nil {
		category := tasks.Category(*req.Category)
		in.Category = &category
	}
	task, err := a.svc.Tasks.Update(r.Context(), principal(r), chi.URLParam(r, "id"), in)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Tasks.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	result, err := a.svc.Audit.List(r.Context(), principal(r), audit.ListRequest{
		Page:           page,
		Limit:          limit,
		EntityType:     q.Get("entityType"),
		Action:         q.Get("action"),
		OrganizationID: q.Get("organizationId"),
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", auth.ErrInvalidInput, name)
	}
	return n, nil
}
