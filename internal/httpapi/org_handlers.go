package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskgate.org/internal/orgs"
)

type createOrganizationRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	ParentOrganizationID string `json:"parentOrganizationId"`
}

type accountRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"omitempty,max=255"`
}

func (a *API) handlePublicOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Orgs.PublicList(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Orgs.List(r.Context(), principal(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	org, err := a.svc.Orgs.Create(r.Context(), principal(r), orgs.CreateInput{
		Name:                 req.Name,
		ParentOrganizationID: req.ParentOrganizationID,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := a.svc.Orgs.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleCreateOwner(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	creds, err := a.svc.Orgs.CreateOwner(r.Context(), principal(r), chi.URLParam(r, "id"), orgs.AccountInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, creds)
}

func (a *API) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := a.bind(r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	creds, err := a.svc.Orgs.CreateAdmin(r.Context(), principal(r), orgs.AccountInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, creds)
}

func (a *API) handleUsersByOrganization(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Orgs.UsersByOrg(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleMyUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Orgs.MyUsers(r.Context(), principal(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleAdminsByOrganization(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Orgs.AdminsByOrg(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handlePlatformUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Orgs.PlatformUsers(r.Context(), principal(r))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
