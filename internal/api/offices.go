package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/popis/internal/store"
)

// OrganizationsHandler handles organization endpoints.
type OrganizationsHandler struct {
	DB *sql.DB
}

type organizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List handles GET /api/organizations.
func (h *OrganizationsHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := store.ListOrganizations(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, orgs)
}

// Create handles POST /api/organizations.
func (h *OrganizationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	org, err := store.CreateOrganization(r.Context(), h.DB, req.Name, req.Description)
	if err != nil {
		writeError(w, r, conflict(err, "organization already exists"))
		return
	}

	slog.Info("organization created", "user", GetUser(r.Context()).Username, "organization", org.Name)
	jsonResponse(w, http.StatusCreated, org)
}

// OfficesHandler handles office endpoints.
type OfficesHandler struct {
	DB *sql.DB
}

type officeRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// List handles GET /api/offices. Staff see only their assigned offices.
func (h *OfficesHandler) List(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if a := GetActor(r.Context()); !a.Elevated() {
		ids = append([]int64{}, a.Offices...)
	}

	offices, err := store.ListOffices(r.Context(), h.DB, ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, offices)
}

// Get handles GET /api/offices/{id}.
func (h *OfficesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	office, err := store.GetOffice(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a := GetActor(r.Context()); office == nil || (!a.Elevated() && !a.HasOffice(office.ID)) {
		writeError(w, r, notFound("office"))
		return
	}
	jsonResponse(w, http.StatusOK, office)
}

// Create handles POST /api/offices.
func (h *OfficesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req officeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	office, err := store.CreateOffice(r.Context(), h.DB, req.Name, strings.TrimSpace(req.Department))
	if err != nil {
		writeError(w, r, conflict(err, "office already exists"))
		return
	}

	slog.Info("office created", "user", GetUser(r.Context()).Username, "office", office.Name, "department", office.Department)
	jsonResponse(w, http.StatusCreated, office)
}

// Update handles PUT /api/offices/{id}.
func (h *OfficesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	var req officeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	err := store.UpdateOffice(r.Context(), h.DB, id, req.Name, strings.TrimSpace(req.Department))
	if err != nil {
		writeError(w, r, conflict(err, "office already exists"))
		return
	}

	office, err := store.GetOffice(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("office updated", "user", GetUser(r.Context()).Username, "office", office.Name)
	jsonResponse(w, http.StatusOK, office)
}

// Delete handles DELETE /api/offices/{id}. Inventory recorded in the
// office is deleted with it.
func (h *OfficesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	if err := store.DeleteOffice(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("office deleted", "user", GetUser(r.Context()).Username, "office_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "office deleted"})
}
