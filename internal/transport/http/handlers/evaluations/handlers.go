package evaluationshandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/audit"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/evaluations"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluations.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Recorder
	Idem    *middleware.IdempotencyStore
	Cfg     config.Config
}

func NewHandler(service *evaluations.Service, perms middleware.PermissionStore, auditRec *audit.Recorder, idem *middleware.IdempotencyStore, cfg config.Config) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditRec, Idem: idem, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cycles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleListCycles)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite, h.Perms)).Post("/", h.handleCreateCycle)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/{cycleID}", h.handleGetCycle)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite, h.Perms)).Post("/{cycleID}/activate", h.handleActivateCycle)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite, h.Perms)).Post("/{cycleID}/close", h.handleCloseCycle)
	})
	r.Route("/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSelf, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/{evaluationID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/{evaluationID}/scores", h.handleScores)
		r.With(middleware.RequirePermission(auth.PermEvaluationsSelf, h.Perms)).Post("/{evaluationID}/submit", h.handleSubmit)
	})
}

type createCyclePayload struct {
	Name                   string `json:"name"`
	StartDate              string `json:"startDate"`
	EndDate                string `json:"endDate"`
	SelfEvaluationStart    string `json:"selfEvaluationStart"`
	SelfEvaluationEnd      string `json:"selfEvaluationEnd"`
	ManagerEvaluationStart string `json:"managerEvaluationStart"`
	ManagerEvaluationEnd   string `json:"managerEvaluationEnd"`
}

type createEvaluationPayload struct {
	CycleID     string `json:"cycleId"`
	EvaluateeID string `json:"evaluateeId"`
	Type        string `json:"type"`
}

type submitPayload struct {
	Scores         []evaluations.ScoreInput `json:"scores"`
	OverallComment string                   `json:"overallComment"`
}

func (h *Handler) handleListCycles(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	cycles, err := h.Service.ListCycles(r.Context(), user.TenantID, r.URL.Query().Get("status"), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "cycles_list_failed", "failed to list cycles", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cycles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload createCyclePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, startOK := v.Date("startDate", payload.StartDate)
	end, endOK := v.Date("endDate", payload.EndDate)
	if startOK && endOK {
		v.DateOrder("startDate", start, "endDate", end)
	}
	selfStart, _ := v.Date("selfEvaluationStart", payload.SelfEvaluationStart)
	selfEnd, _ := v.Date("selfEvaluationEnd", payload.SelfEvaluationEnd)
	managerStart, _ := v.Date("managerEvaluationStart", payload.ManagerEvaluationStart)
	managerEnd, _ := v.Date("managerEvaluationEnd", payload.ManagerEvaluationEnd)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	cycle, err := h.Service.CreateCycle(r.Context(), user.TenantID, evaluations.CycleInput{
		Name:                   payload.Name,
		StartDate:              start,
		EndDate:                end,
		SelfEvaluationStart:    selfStart,
		SelfEvaluationEnd:      selfEnd,
		ManagerEvaluationStart: managerStart,
		ManagerEvaluationEnd:   managerEnd,
	})
	if err != nil {
		h.writeError(w, r, err, "cycle_create_failed", "failed to create cycle")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "cycle.create", "evaluation_cycle", cycle.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"name": cycle.Name})
	api.Created(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycle, err := h.Service.GetCycle(r.Context(), user.TenantID, chi.URLParam(r, "cycleID"))
	if err != nil {
		h.writeError(w, r, err, "cycle_get_failed", "failed to load cycle")
		return
	}
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivateCycle(w http.ResponseWriter, r *http.Request) {
	h.cycleTransition(w, r, "cycle.activate", h.Service.ActivateCycle)
}

func (h *Handler) handleCloseCycle(w http.ResponseWriter, r *http.Request) {
	h.cycleTransition(w, r, "cycle.close", h.Service.CloseCycle)
}

func (h *Handler) cycleTransition(w http.ResponseWriter, r *http.Request, action string, transition func(context.Context, string, string) (evaluations.Cycle, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	cycleID := chi.URLParam(r, "cycleID")
	cycle, err := transition(r.Context(), user.TenantID, cycleID)
	if err != nil {
		h.writeError(w, r, err, "cycle_transition_failed", "failed to change cycle status")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "evaluation_cycle", cycleID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"status": cycle.Status})
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	filter := evaluations.Filter{
		CycleID:     r.URL.Query().Get("cycleId"),
		EvaluateeID: r.URL.Query().Get("evaluateeId"),
		EvaluatorID: r.URL.Query().Get("evaluatorId"),
		Status:      r.URL.Query().Get("status"),
	}
	listed, err := h.Service.List(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "evaluations_list_failed", "failed to list evaluations", middleware.GetRequestID(r.Context()))
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
	var payload createEvaluationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("cycleId", payload.CycleID, "cycle id is required")
	v.Required("evaluateeId", payload.EvaluateeID, "evaluatee id is required")
	v.Enum("type", payload.Type, evaluations.EvaluationTypes, "must be one of self, manager, peer")
	v.Required("type", payload.Type, "type is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.TenantID, payload.CycleID, payload.EvaluateeID, user.UserID, payload.Type)
	if err != nil {
		h.writeError(w, r, err, "evaluation_create_failed", "failed to create evaluation")
		return
	}
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	evaluation, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.writeError(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	api.Success(w, evaluation, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScores(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	scores, err := h.Service.Scores(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		h.writeError(w, r, err, "evaluation_scores_failed", "failed to load scores")
		return
	}
	api.Success(w, scores, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if len(payload.Scores) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "at least one score is required", middleware.GetRequestID(r.Context()))
		return
	}

	evaluationID := chi.URLParam(r, "evaluationID")
	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestBytes, _ := json.Marshal(payload)
	requestHash := middleware.RequestHash(requestBytes)
	if idempotencyKey != "" {
		stored, found, err := h.Idem.Check(r.Context(), user.TenantID, user.UserID, "evaluation.submit", idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different request", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "error", err)
		}
		if found {
			api.Success(w, stored, middleware.GetRequestID(r.Context()))
			return
		}
	}

	submitted, err := h.Service.Submit(r.Context(), user.TenantID, evaluationID, user.UserID, payload.Scores, payload.OverallComment)
	if err != nil {
		h.writeError(w, r, err, "evaluation_submit_failed", "failed to submit evaluation")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "evaluation.submit", "evaluation", evaluationID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]int{"scores": len(payload.Scores)})

	if idempotencyKey != "" {
		if response, err := json.Marshal(submitted); err == nil {
			if err := h.Idem.Save(r.Context(), user.TenantID, user.UserID, "evaluation.submit", idempotencyKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "error", err)
			}
		}
	}
	api.Success(w, submitted, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, evaluations.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", requestID)
	case errors.Is(err, evaluations.ErrCycleNotFound):
		api.Fail(w, http.StatusNotFound, "cycle_not_found", "evaluation cycle not found", requestID)
	case errors.Is(err, evaluations.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed for this evaluation", requestID)
	case errors.Is(err, evaluations.ErrInvalidScore):
		api.Fail(w, http.StatusBadRequest, "invalid_score", err.Error(), requestID)
	case errors.Is(err, evaluations.ErrInvalidState):
		api.Fail(w, http.StatusBadRequest, "invalid_state", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
