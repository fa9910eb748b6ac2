package api

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type updateRoleResponse struct {
	User           *model.User `json:"user"`
	OfficesCleared bool        `json:"offices_cleared"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type officeIDsRequest struct {
	OfficeIDs []int64 `json:"office_ids"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users. Only a super admin may create another
// super admin. Without an organization the new user joins the creator's.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	creator := GetUser(r.Context())

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || req.Role == "" {
		jsonError(w, http.StatusBadRequest, "username, password, and role required")
		return
	}
	if err := model.ValidateUsername(req.Username); err != nil {
		writeError(w, r, err)
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.Role == model.RoleSuperAdmin && creator.Role != model.RoleSuperAdmin {
		jsonError(w, http.StatusForbidden, "only a super admin can create a super admin")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	orgID := creator.OrganizationID
	if name := strings.TrimSpace(req.Organization); name != "" {
		org, err := store.GetOrCreateOrganization(r.Context(), h.DB, name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		orgID = &org.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, strings.TrimSpace(req.Email), string(hash), req.Role, orgID)
	if err != nil {
		writeError(w, r, conflict(err, "username or email already exists"))
		return
	}

	slog.Info("user created", "user", creator.Username, "new_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, notFound("user"))
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// UpdateRole handles PUT /api/users/{id}/role. Moving a user away from
// staff drops their office assignment, which the response reports.
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor := GetUser(r.Context())

	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if id == actor.ID {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target == nil {
		writeError(w, r, notFound("user"))
		return
	}
	if (req.Role == model.RoleSuperAdmin || target.Role == model.RoleSuperAdmin) && actor.Role != model.RoleSuperAdmin {
		jsonError(w, http.StatusForbidden, "only a super admin can grant or revoke super admin")
		return
	}

	cleared, err := store.SetUserRole(r.Context(), h.DB, id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user role updated", "user", actor.Username, "target_user", target.Username,
		"old_role", target.Role, "new_role", req.Role, "offices_cleared", cleared)
	jsonResponse(w, http.StatusOK, updateRoleResponse{User: user, OfficesCleared: cleared})
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Password == "" {
		jsonError(w, http.StatusBadRequest, "password required")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user password reset", "user", GetUser(r.Context()).Username, "target_user", fmt.Sprintf("id:%d", id))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. The user's inventory records are
// deleted with them.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	// Prevent self-deletion.
	actor := GetUser(r.Context())
	if actor.ID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target == nil {
		writeError(w, r, notFound("user"))
		return
	}
	if target.Role == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		jsonError(w, http.StatusForbidden, "only a super admin can delete a super admin")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user deleted", "user", actor.Username, "deleted_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// Offices handles GET /api/users/{id}/offices.
func (h *UsersHandler) Offices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, notFound("user"))
		return
	}

	h.respondOffices(w, r, id)
}

// AddOffices handles POST /api/users/{id}/offices.
func (h *UsersHandler) AddOffices(w http.ResponseWriter, r *http.Request) {
	h.assignOffices(w, r, "added", store.AddUserOffices)
}

// ReplaceOffices handles PUT /api/users/{id}/offices.
func (h *UsersHandler) ReplaceOffices(w http.ResponseWriter, r *http.Request) {
	h.assignOffices(w, r, "replaced", store.ReplaceUserOffices)
}

// RemoveOffices handles DELETE /api/users/{id}/offices.
func (h *UsersHandler) RemoveOffices(w http.ResponseWriter, r *http.Request) {
	h.assignOffices(w, r, "removed", store.RemoveUserOffices)
}

type assignFunc func(ctx context.Context, db *sql.DB, userID int64, officeIDs []int64) error

func (h *UsersHandler) assignOffices(w http.ResponseWriter, r *http.Request, verb string, assign assignFunc) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req officeIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OfficeIDs == nil {
		jsonError(w, http.StatusBadRequest, "office_ids required")
		return
	}

	if err := assign(r.Context(), h.DB, id, req.OfficeIDs); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user offices "+verb, "user", GetUser(r.Context()).Username, "target_user", id, "offices", req.OfficeIDs)
	h.respondOffices(w, r, id)
}

func (h *UsersHandler) respondOffices(w http.ResponseWriter, r *http.Request, userID int64) {
	offices, err := store.ListUserOffices(r.Context(), h.DB, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, offices)
}
