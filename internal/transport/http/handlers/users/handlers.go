package usershandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/audit"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/identity"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type Handler struct {
	Service *identity.Service
	Auth    *auth.Store
	Perms   middleware.PermissionStore
	Audit   *audit.Recorder
	Cfg     config.Config
}

func NewHandler(service *identity.Service, authStore *auth.Store, perms middleware.PermissionStore, auditRec *audit.Recorder, cfg config.Config) *Handler {
	return &Handler{Service: service, Auth: authStore, Perms: perms, Audit: auditRec, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/{userID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Put("/{userID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Delete("/{userID}", h.handleDelete)
		r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/{userID}/subordinates", h.handleSubordinates)
		r.With(middleware.RequirePermission(auth.PermUsersWrite, h.Perms)).Post("/{userID}/roles", h.handleAssignRole)
	})
	r.With(middleware.RequirePermission(auth.PermUsersRead, h.Perms)).Get("/roles", h.handleListRoles)
}

type createUserPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	EmployeeNo string `json:"employeeNo"`
	Position   string `json:"position"`
	ManagerID  string `json:"managerId"`
	HireDate   string `json:"hireDate"`
	Role       string `json:"role"`
}

type updateUserPayload struct {
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	EmployeeNo string  `json:"employeeNo"`
	Position   string  `json:"position"`
	ManagerID  *string `json:"managerId"`
	Status     string  `json:"status"`
}

type assignRolePayload struct {
	Role string `json:"role"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	filter := identity.UserFilter{
		Status:    r.URL.Query().Get("status"),
		ManagerID: r.URL.Query().Get("managerId"),
	}
	users, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "users_list_failed", "failed to list users", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, users, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload createUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	v.Required("firstName", payload.FirstName, "first name is required")
	v.Required("lastName", payload.LastName, "last name is required")
	if len(payload.Password) > 0 && len(payload.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	var hireDate any
	if payload.HireDate != "" {
		parsed, ok := v.Date("hireDate", payload.HireDate)
		if ok {
			hireDate = parsed
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_create_failed", "failed to create user", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user.TenantID, identity.CreateUserInput{
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		PasswordHash: hash,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		EmployeeNo:   payload.EmployeeNo,
		Position:     payload.Position,
		ManagerID:    payload.ManagerID,
		HireDate:     hireDate,
	})
	if err != nil {
		h.writeError(w, r, err, "user_create_failed", "failed to create user")
		return
	}

	if payload.Role != "" {
		if roleID, err := h.Auth.RoleIDByName(r.Context(), user.TenantID, payload.Role); err == nil {
			_ = h.Auth.AssignRole(r.Context(), created.ID, roleID)
		}
	}

	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "user.create", "user", created.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"email": created.Email})
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	found, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err, "user_get_failed", "failed to load user")
		return
	}
	api.Success(w, found, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload updateUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	targetID := chi.URLParam(r, "userID")
	updated, err := h.Service.Update(r.Context(), user.TenantID, targetID, identity.UpdateUserInput{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		EmployeeNo: payload.EmployeeNo,
		Position:   payload.Position,
		ManagerID:  payload.ManagerID,
		Status:     payload.Status,
	})
	if err != nil {
		h.writeError(w, r, err, "user_update_failed", "failed to update user")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "user.update", "user", targetID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), payload)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	targetID := chi.URLParam(r, "userID")
	if err := h.Service.Delete(r.Context(), user.TenantID, targetID); err != nil {
		h.writeError(w, r, err, "user_delete_failed", "failed to delete user")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "user.delete", "user", targetID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubordinates(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	subordinates, err := h.Service.Subordinates(r.Context(), user.TenantID, chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err, "subordinates_failed", "failed to list subordinates")
		return
	}
	api.Success(w, subordinates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload assignRolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Role) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "role name is required", middleware.GetRequestID(r.Context()))
		return
	}
	targetID := chi.URLParam(r, "userID")
	if _, err := h.Service.Get(r.Context(), user.TenantID, targetID); err != nil {
		h.writeError(w, r, err, "role_assign_failed", "failed to assign role")
		return
	}
	roleID, err := h.Auth.RoleIDByName(r.Context(), user.TenantID, payload.Role)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "role_not_found", "role not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Auth.AssignRole(r.Context(), targetID, roleID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "role_assign_failed", "failed to assign role", middleware.GetRequestID(r.Context()))
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "user.role.assign", "user", targetID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), payload)
	api.Success(w, map[string]string{"status": "assigned"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	roles, err := h.Service.Roles(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "roles_list_failed", "failed to list roles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, roles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, identity.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", requestID)
	case errors.Is(err, identity.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", "email or employee number already in use", requestID)
	case errors.Is(err, identity.ErrManagerCycle):
		api.Fail(w, http.StatusBadRequest, "manager_cycle", "manager assignment would create a reporting cycle", requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
