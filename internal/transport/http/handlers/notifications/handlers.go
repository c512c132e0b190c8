package notificationshandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/notifications"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	Perms   middleware.PermissionStore
	Cfg     config.Config
}

func NewHandler(service *notifications.Service, perms middleware.PermissionStore, cfg config.Config) *Handler {
	return &Handler{Service: service, Perms: perms, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermNotificationsRead, h.Perms))
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Post("/mark-all-read", h.handleMarkAllRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	listed, err := h.Service.List(r.Context(), user.TenantID, user.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notifications_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, listed, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	count, err := h.Service.UnreadCount(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "unread_count_failed", "failed to count notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int{"unread": count}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	err := h.Service.MarkRead(r.Context(), user.TenantID, user.UserID, chi.URLParam(r, "notificationID"))
	if errors.Is(err, notifications.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mark_read_failed", "failed to mark notification read", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"read": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	updated, err := h.Service.MarkAllRead(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mark_all_read_failed", "failed to mark notifications read", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int64{"updated": updated}, middleware.GetRequestID(r.Context()))
}
