package goalshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/audit"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/goals"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type Handler struct {
	Service *goals.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Recorder
	Cfg     config.Config
}

func NewHandler(service *goals.Service, perms middleware.PermissionStore, auditRec *audit.Recorder, cfg config.Config) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditRec, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/goals", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermGoalsApprove, h.Perms)).Get("/pending-approvals", h.handlePendingApprovals)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Put("/{goalID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/{goalID}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermGoalsApprove, h.Perms)).Post("/{goalID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermGoalsApprove, h.Perms)).Post("/{goalID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermGoalsWrite, h.Perms)).Post("/{goalID}/progress", h.handleRecordProgress)
		r.With(middleware.RequirePermission(auth.PermGoalsRead, h.Perms)).Get("/{goalID}/progress", h.handleProgressHistory)
	})
}

type createGoalPayload struct {
	CycleID         string   `json:"cycleId"`
	ParentGoalID    string   `json:"parentGoalId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	SuccessCriteria string   `json:"successCriteria"`
	Category        string   `json:"category"`
	Weight          float64  `json:"weight"`
	TargetValue     *float64 `json:"targetValue"`
}

type updateGoalPayload struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	SuccessCriteria string   `json:"successCriteria"`
	Category        string   `json:"category"`
	Weight          *float64 `json:"weight"`
	TargetValue     *float64 `json:"targetValue"`
	CurrentValue    *float64 `json:"currentValue"`
}

type decisionPayload struct {
	Comment string `json:"comment"`
}

type progressPayload struct {
	ProgressPercentage float64 `json:"progressPercentage"`
	Comment            string  `json:"comment"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	filter := goals.Filter{
		UserID:  r.URL.Query().Get("userId"),
		CycleID: r.URL.Query().Get("cycleId"),
		Status:  r.URL.Query().Get("status"),
	}
	listed, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "goals_list_failed", "failed to list goals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, listed, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload createGoalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("cycleId", payload.CycleID, "cycle id is required")
	v.Required("title", payload.Title, "title is required")
	v.Enum("category", payload.Category, goals.Categories, "must be one of performance, skill, behavior")
	v.Required("category", payload.Category, "category is required")
	v.Range("weight", payload.Weight, 0, 100, "must be between 0 and 100")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, goals.CreateInput{
		CycleID:         payload.CycleID,
		ParentGoalID:    payload.ParentGoalID,
		Title:           payload.Title,
		Description:     payload.Description,
		SuccessCriteria: payload.SuccessCriteria,
		Category:        payload.Category,
		Weight:          payload.Weight,
		TargetValue:     payload.TargetValue,
	})
	if err != nil {
		h.writeError(w, r, err, "goal_create_failed", "failed to create goal")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "goal.create", "goal", created.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"title": created.Title})
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	goal, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "goalID"))
	if err != nil {
		h.writeError(w, r, err, "goal_get_failed", "failed to load goal")
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload updateGoalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	goal, err := h.Service.Update(r.Context(), user.TenantID, chi.URLParam(r, "goalID"), user.UserID, goals.UpdateInput{
		Title:           payload.Title,
		Description:     payload.Description,
		SuccessCriteria: payload.SuccessCriteria,
		Category:        payload.Category,
		Weight:          payload.Weight,
		TargetValue:     payload.TargetValue,
		CurrentValue:    payload.CurrentValue,
	})
	if err != nil {
		h.writeError(w, r, err, "goal_update_failed", "failed to update goal")
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	goalID := chi.URLParam(r, "goalID")
	goal, err := h.Service.Submit(r.Context(), user.TenantID, goalID, user.UserID)
	if err != nil {
		h.writeError(w, r, err, "goal_submit_failed", "failed to submit goal")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "goal.submit", "goal", goalID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil)
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	goalID := chi.URLParam(r, "goalID")
	goal, err := h.Service.Approve(r.Context(), user.TenantID, goalID, user.UserID)
	if err != nil {
		h.writeError(w, r, err, "goal_approve_failed", "failed to approve goal")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "goal.approve", "goal", goalID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil)
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	goalID := chi.URLParam(r, "goalID")
	goal, err := h.Service.Reject(r.Context(), user.TenantID, goalID, user.UserID, payload.Comment)
	if err != nil {
		h.writeError(w, r, err, "goal_reject_failed", "failed to reject goal")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "goal.reject", "goal", goalID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"comment": payload.Comment})
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload progressPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	goal, err := h.Service.RecordProgress(r.Context(), user.TenantID, chi.URLParam(r, "goalID"), user.UserID, payload.ProgressPercentage, payload.Comment)
	if err != nil {
		h.writeError(w, r, err, "goal_progress_failed", "failed to record progress")
		return
	}
	api.Success(w, goal, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProgressHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	history, err := h.Service.ProgressHistory(r.Context(), user.TenantID, chi.URLParam(r, "goalID"))
	if err != nil {
		h.writeError(w, r, err, "goal_progress_failed", "failed to load progress history")
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	pending, total, err := h.Service.PendingApprovals(r.Context(), user.TenantID, user.UserID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "pending_approvals_failed", "failed to list pending approvals", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"items":  pending,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, goals.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "goal not found", requestID)
	case errors.Is(err, goals.ErrCycleNotFound):
		api.Fail(w, http.StatusNotFound, "cycle_not_found", "evaluation cycle not found", requestID)
	case errors.Is(err, goals.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed for this goal", requestID)
	case errors.Is(err, goals.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_state", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
