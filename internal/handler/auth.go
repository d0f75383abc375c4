package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
)

const invalidCredentials = "Incorrect username or password"

type AuthHandler struct {
	userStore     *store.UserStore
	settingsStore *store.SettingsStore
	issuer        *auth.Issuer
	logger        *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SettingsStore, issuer *auth.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, settingsStore: ss, issuer: issuer, logger: logger}
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user"`
}

// Login handles POST /api/v1/auth/login. The form's username field accepts a
// child's username or a parent's email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	login := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	fields := fieldErrors{}
	fields.require("username", login)
	fields.require("password", password)
	if fields.write(w) {
		return
	}

	user, err := h.userStore.GetByLogin(login)
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		writeError(w, http.StatusBadRequest, invalidCredentials)
		return
	}

	token, err := h.issuer.NewAccessToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("issue token", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.logger.Info("login", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", User: user})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterParent handles POST /api/v1/auth/register-parent.
func (h *AuthHandler) RegisterParent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fields := fieldErrors{}
	fields.require("name", req.Name)
	fields.require("email", req.Email)
	fields.require("password", req.Password)
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		fields["email"] = "must be an email address"
	}
	if req.Password != "" && len(req.Password) < 6 {
		fields["password"] = "must be at least 6 characters"
	}
	if fields.write(w) {
		return
	}

	if req.Role != "" && req.Role != model.RoleParent {
		writeError(w, http.StatusBadRequest, "Role must be PARENT for this endpoint")
		return
	}

	taken, err := h.userStore.EmailTaken(req.Email)
	if err != nil {
		h.logger.Error("check email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if taken {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Email '%s' already registered", req.Email))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.userStore.CreateParent(req.Name, req.Email, hash)
	if err != nil {
		h.logger.Error("create parent", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	if _, err := h.settingsStore.Get(user.ID); err != nil {
		h.logger.Warn("init parent settings", "parent_id", user.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, user)
}

// Me handles GET /api/v1/users/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get current user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
