package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/popis/internal/auth"
	"github.com/erazemk/popis/internal/imaging"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/policy"
	"github.com/erazemk/popis/internal/store"
)

// AuthHandler handles authentication and self-service endpoints.
type AuthHandler struct {
	DB                *sql.DB
	Issuer            *auth.Issuer
	Metrics           *metrics.Metrics
	AllowRegistration bool
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type registerRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Organization string `json:"organization"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login. The username field also accepts an
// email address.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByLogin(r.Context(), h.DB, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		h.Metrics.LoginAttempt(false)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.Metrics.LoginAttempt(false)
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	pair, err := h.Issuer.IssuePair(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Metrics.LoginAttempt(true)
	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, pair)
}

// Refresh handles POST /api/auth/refresh. The presented refresh token is
// spent and a new pair is issued with the user's current role.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		jsonError(w, http.StatusBadRequest, "refresh token required")
		return
	}

	claims, err := h.Issuer.Validate(req.Refresh, auth.KindRefresh)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}

	err = store.ConsumeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time)
	if errors.Is(err, store.ErrConflict) {
		slog.Warn("revoked refresh token reused", "user", user.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "token has been revoked")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.Issuer.IssuePair(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, pair)
}

// Logout handles POST /api/auth/logout by revoking the caller's refresh
// token. Access tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		jsonError(w, http.StatusBadRequest, "refresh token required")
		return
	}

	claims, err := h.Issuer.Validate(req.Refresh, auth.KindRefresh)
	if err != nil || claims.UserID != user.ID {
		jsonError(w, http.StatusBadRequest, "invalid refresh token")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user logged out", "user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Register handles POST /api/auth/register. New accounts are always staff
// without offices; an admin assigns offices later.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.AllowRegistration {
		jsonError(w, http.StatusForbidden, "registration is disabled")
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := model.ValidateUsername(req.Username); err != nil {
		writeError(w, r, err)
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	var orgID *int64
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

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, strings.TrimSpace(req.Email), string(hash), model.RoleStaff, orgID)
	if err != nil {
		writeError(w, r, conflict(err, "username or email already exists"))
		return
	}

	slog.Info("user registered", "new_user", user.Username, "organization", user.OrganizationName)
	jsonResponse(w, http.StatusCreated, user)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, GetUser(r.Context()))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	if err := model.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, string(hash)); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("user changed own password", "user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// UploadImage handles PUT /api/auth/me/image.
func (h *AuthHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadLen)
	if err := r.ParseMultipartForm(imaging.MaxUploadLen); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	avatar, err := imaging.ProcessAvatar(file)
	if errors.Is(err, imaging.ErrUnsupported) {
		jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetProfileImage(r.Context(), h.DB, user.ID, avatar.Data, avatar.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("profile image updated", "user", user.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/users/{id}/image.
func (h *AuthHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	err := policy.Check(policy.OwnerOrElevated, GetActor(r.Context()), policy.Read, &policy.Target{UserID: id})
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, mime, err := store.GetProfileImage(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
