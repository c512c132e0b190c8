package audithandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/audit"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type Handler struct {
	Recorder *audit.Recorder
	Perms    middleware.PermissionStore
	Cfg      config.Config
}

func NewHandler(recorder *audit.Recorder, perms middleware.PermissionStore, cfg config.Config) *Handler {
	return &Handler{Recorder: recorder, Perms: perms, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	filter := audit.Filter{
		ActorID: r.URL.Query().Get("actorId"),
		Entity:  r.URL.Query().Get("entity"),
		Action:  r.URL.Query().Get("action"),
	}

	events, err := h.Recorder.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}
