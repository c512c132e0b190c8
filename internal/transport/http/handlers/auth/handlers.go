package authhandler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	cryptoutil "github.com/Qrokawa/jinzai-ikusei/internal/platform/crypto"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/requestctx"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
)

type Handler struct {
	Store  *auth.Store
	Cfg    config.Config
	Crypto *cryptoutil.Service
}

func NewHandler(store *auth.Store, cfg config.Config, crypto *cryptoutil.Service) *Handler {
	return &Handler{Store: store, Cfg: cfg, Crypto: crypto}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/change-password", h.handleChangePassword)
		r.Post("/mfa/setup", h.handleMFASetup)
		r.Post("/mfa/enable", h.handleMFAEnable)
		r.Post("/mfa/disable", h.handleMFADisable)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	user, err := h.Store.FindActiveUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(user.Password, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestctx.GetRequestID(r.Context()))
		return
	}

	if user.MFAEnabled {
		if payload.MFACode == "" {
			api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestctx.GetRequestID(r.Context()))
			return
		}
		secret := ""
		if h.Crypto != nil && h.Crypto.Configured() {
			decoded, err := h.Crypto.DecryptString(user.MFASecretEnc)
			if err != nil {
				api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa configuration", requestctx.GetRequestID(r.Context()))
				return
			}
			secret = decoded
		} else {
			secret = string(user.MFASecretEnc)
		}
		if secret == "" || !totp.Validate(payload.MFACode, secret) {
			api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestctx.GetRequestID(r.Context()))
			return
		}
	}

	sessionID, err := generateToken()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.CreateSession(r.Context(), user.ID, sessionID, time.Now().Add(h.Cfg.RefreshSessionTTL)); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to start session", requestctx.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Cfg.JWTSecret, auth.Claims{
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Roles:     user.Roles,
		SessionID: sessionID,
	}, h.Cfg.AccessTokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestctx.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("update last_login_at failed", "userId", user.ID, "err", err)
	}

	api.Success(w, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":        user.ID,
			"tenantId":  user.TenantID,
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"roles":     user.Roles,
		},
	}, requestctx.GetRequestID(r.Context()))
}

// handleRegister self-serves an employee account when the deployment
// allows it. The tenant is derived from the email domain.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.Cfg.AllowSelfSignup {
		api.Fail(w, http.StatusForbidden, "signup_disabled", "self signup is disabled", requestctx.GetRequestID(r.Context()))
		return
	}
	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		api.Fail(w, http.StatusBadRequest, "invalid_email", "a valid email address is required", requestctx.GetRequestID(r.Context()))
		return
	}
	if len(payload.Password) < 8 {
		api.Fail(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters", requestctx.GetRequestID(r.Context()))
		return
	}
	if payload.FirstName == "" || payload.LastName == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "firstName and lastName are required", requestctx.GetRequestID(r.Context()))
		return
	}

	tenantID, err := h.Store.TenantIDByDomain(r.Context(), email[at+1:])
	if err != nil {
		api.Fail(w, http.StatusNotFound, "unknown_tenant", "no organization registered for this email domain", requestctx.GetRequestID(r.Context()))
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "registration_failed", "failed to register", requestctx.GetRequestID(r.Context()))
		return
	}
	userID, err := h.Store.RegisterUser(r.Context(), tenantID, email, hash, payload.FirstName, payload.LastName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestctx.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "registration_failed", "failed to register", requestctx.GetRequestID(r.Context()))
		return
	}

	if roleID, err := h.Store.RoleIDByName(r.Context(), tenantID, auth.RoleEmployee); err != nil {
		slog.Warn("employee role lookup failed on signup", "tenantId", tenantID, "err", err)
	} else if err := h.Store.AssignRole(r.Context(), userID, roleID); err != nil {
		slog.Warn("employee role assignment failed on signup", "userId", userID, "err", err)
	}

	api.Created(w, map[string]any{
		"id":        userID,
		"tenantId":  tenantID,
		"email":     email,
		"firstName": payload.FirstName,
		"lastName":  payload.LastName,
	}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.bearerClaims(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}

	valid, err := h.Store.SessionValid(r.Context(), claims.SessionID)
	if err != nil || !valid {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", requestctx.GetRequestID(r.Context()))
		return
	}

	newSessionID, err := generateToken()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to rotate session", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.RotateSession(r.Context(), claims.UserID, claims.SessionID, newSessionID, time.Now().Add(h.Cfg.RefreshSessionTTL)); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to rotate session", requestctx.GetRequestID(r.Context()))
		return
	}

	roles, err := h.Store.RolesForUser(r.Context(), claims.UserID)
	if err != nil {
		roles = claims.Roles
	}
	token, err := auth.GenerateToken(h.Cfg.JWTSecret, auth.Claims{
		UserID:    claims.UserID,
		TenantID:  claims.TenantID,
		Roles:     roles,
		SessionID: newSessionID,
	}, h.Cfg.AccessTokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"token": token}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.GetUser(r.Context()); ok && user.SessionID != "" {
		if err := h.Store.RevokeSession(r.Context(), user.UserID, user.SessionID); err != nil {
			slog.Warn("logout session revoke failed", "userId", user.UserID, "err", err)
		}
	}
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"id":       user.UserID,
		"tenantId": user.TenantID,
		"roles":    user.Roles,
	}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}
	var payload changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	if len(payload.NewPassword) < 8 {
		api.Fail(w, http.StatusBadRequest, "weak_password", "new password must be at least 8 characters", requestctx.GetRequestID(r.Context()))
		return
	}

	current, err := h.Store.PasswordHash(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "password_change_failed", "failed to change password", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(current, payload.CurrentPassword); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect", requestctx.GetRequestID(r.Context()))
		return
	}

	hash, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "password_change_failed", "failed to change password", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.UpdateUserPassword(r.Context(), user.UserID, hash); err != nil {
		api.Fail(w, http.StatusInternalServerError, "password_change_failed", "failed to change password", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.RevokeAllSessions(r.Context(), user.UserID); err != nil {
		slog.Warn("revoke sessions after password change failed", "userId", user.UserID, "err", err)
	}
	api.Success(w, map[string]string{"status": "password_changed"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}
	if h.Crypto == nil || !h.Crypto.Configured() {
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", requestctx.GetRequestID(r.Context()))
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "JinzaiIkusei",
		AccountName: user.UserID,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to generate mfa secret", requestctx.GetRequestID(r.Context()))
		return
	}
	secret := key.Secret()
	encrypted, err := h.Crypto.EncryptString(secret)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to store mfa secret", requestctx.GetRequestID(r.Context()))
		return
	}
	if err := h.Store.UpdateMFASecret(r.Context(), user.UserID, encrypted); err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to store mfa secret", requestctx.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]string{"secret": secret, "otpauthUrl": key.URL()}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.handleMFAToggle(w, r, true)
}

func (h *Handler) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.handleMFAToggle(w, r, false)
}

func (h *Handler) handleMFAToggle(w http.ResponseWriter, r *http.Request, enable bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
		return
	}
	if h.Crypto == nil || !h.Crypto.Configured() {
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", requestctx.GetRequestID(r.Context()))
		return
	}
	var payload mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}

	secretEnc, err := h.Store.GetMFASecret(r.Context(), user.UserID)
	if err != nil || len(secretEnc) == 0 {
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", requestctx.GetRequestID(r.Context()))
		return
	}
	secret, err := h.Crypto.DecryptString(secretEnc)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa secret", requestctx.GetRequestID(r.Context()))
		return
	}
	if !totp.Validate(payload.Code, secret) {
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", requestctx.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.SetMFAEnabled(r.Context(), user.UserID, enable); err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_update_failed", "failed to update mfa", requestctx.GetRequestID(r.Context()))
		return
	}
	status := "disabled"
	if enable {
		status = "enabled"
	}
	api.Success(w, map[string]string{"status": status}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) bearerClaims(r *http.Request) (*auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, false
	}
	claims, err := auth.ParseToken(h.Cfg.JWTSecret, parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

func generateToken() (string, error) {
	buff := make([]byte, 32)
	if _, err := rand.Read(buff); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buff), nil
}
