package reportshandler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/evaluations"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/reports"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
)

type Handler struct {
	Service     *reports.Service
	Evaluations *evaluations.Service
	Perms       middleware.PermissionStore
}

func NewHandler(service *reports.Service, evaluationSvc *evaluations.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Evaluations: evaluationSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.Perms))
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/cycles/{cycleID}/results", h.handleCycleResults)
		r.Get("/cycles/{cycleID}/results.pdf", h.handleCycleResultsPDF)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	dashboard, err := h.Service.Dashboard(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCycleResults(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycle, results, err := h.Evaluations.CycleResults(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if errors.Is(err, evaluations.ErrCycleNotFound) {
		api.Fail(w, http.StatusNotFound, "cycle_not_found", "evaluation cycle not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "cycle_results_failed", "failed to load cycle results", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"cycle": cycle, "results": results}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCycleResultsPDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycleID := chi.URLParam(r, "cycleID")
	rendered, err := h.Service.CycleResultsPDF(r.Context(), user.TenantID, cycleID)
	if errors.Is(err, evaluations.ErrCycleNotFound) {
		api.Fail(w, http.StatusNotFound, "cycle_not_found", "evaluation cycle not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cycle-results-%s.pdf"`, cycleID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered)
}
