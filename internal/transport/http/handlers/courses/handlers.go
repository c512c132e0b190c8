package courseshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/audit"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/domain/courses"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/middleware"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type Handler struct {
	Service *courses.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Recorder
	Cfg     config.Config
}

func NewHandler(service *courses.Service, perms middleware.PermissionStore, auditRec *audit.Recorder, cfg config.Config) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditRec, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/courses", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCoursesRead, h.Perms)).Get("/", h.handleListCourses)
		r.With(middleware.RequirePermission(auth.PermCoursesWrite, h.Perms)).Post("/", h.handleCreateCourse)
		r.With(middleware.RequirePermission(auth.PermCoursesRead, h.Perms)).Get("/{courseID}", h.handleGetCourse)
		r.With(middleware.RequirePermission(auth.PermCoursesRead, h.Perms)).Get("/{courseID}/lessons", h.handleListLessons)
		r.With(middleware.RequirePermission(auth.PermCoursesWrite, h.Perms)).Post("/{courseID}/lessons", h.handleAddLesson)
		r.With(middleware.RequirePermission(auth.PermCoursesEnroll, h.Perms)).Post("/{courseID}/enroll", h.handleEnroll)
	})
	r.Route("/enrollments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCoursesRead, h.Perms)).Get("/", h.handleListEnrollments)
		r.With(middleware.RequirePermission(auth.PermCoursesRead, h.Perms)).Get("/{enrollmentID}/lessons", h.handleLessonProgress)
		r.With(middleware.RequirePermission(auth.PermCoursesEnroll, h.Perms)).Patch("/{enrollmentID}/lessons/{lessonID}/progress", h.handleRecordProgress)
	})
}

type createCoursePayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type addLessonPayload struct {
	Title           string `json:"title"`
	Position        int    `json:"position"`
	DurationMinutes int    `json:"durationMinutes"`
}

type lessonProgressPayload struct {
	ProgressPercentage float64 `json:"progressPercentage"`
	TimeSpentMinutes   int     `json:"timeSpentMinutes"`
	LastPosition       int     `json:"lastPosition"`
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	listed, err := h.Service.ListCourses(r.Context(), user.TenantID, r.URL.Query().Get("category"), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "courses_list_failed", "failed to list courses", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, listed, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload createCoursePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateCourse(r.Context(), user.TenantID, payload.Title, payload.Description, payload.Category)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "course_create_failed", "failed to create course", middleware.GetRequestID(r.Context()))
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "course.create", "course", created.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"title": created.Title})
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	course, err := h.Service.GetCourse(r.Context(), user.TenantID, chi.URLParam(r, "courseID"))
	if err != nil {
		h.writeError(w, r, err, "course_get_failed", "failed to load course")
		return
	}
	api.Success(w, course, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	lessons, err := h.Service.Lessons(r.Context(), user.TenantID, chi.URLParam(r, "courseID"))
	if err != nil {
		h.writeError(w, r, err, "lessons_list_failed", "failed to list lessons")
		return
	}
	api.Success(w, lessons, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAddLesson(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload addLessonPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	if payload.Position < 0 {
		v.Add("position", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	lesson, err := h.Service.AddLesson(r.Context(), user.TenantID, chi.URLParam(r, "courseID"), payload.Title, payload.Position, payload.DurationMinutes)
	if err != nil {
		h.writeError(w, r, err, "lesson_create_failed", "failed to add lesson")
		return
	}
	api.Created(w, lesson, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	courseID := chi.URLParam(r, "courseID")
	enrollment, err := h.Service.Enroll(r.Context(), user.TenantID, user.UserID, courseID)
	if err != nil {
		h.writeError(w, r, err, "enroll_failed", "failed to enroll")
		return
	}
	h.Audit.Record(r.Context(), user.TenantID, user.UserID, "course.enroll", "course_enrollment", enrollment.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]string{"courseId": courseID})
	api.Created(w, enrollment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, h.Cfg.DefaultPageSize, h.Cfg.MaxPageSize)
	userID := user.UserID
	if requested := r.URL.Query().Get("userId"); requested != "" {
		userID = requested
	}
	listed, err := h.Service.Enrollments(r.Context(), user.TenantID, userID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "enrollments_list_failed", "failed to list enrollments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, listed, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLessonProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	progress, err := h.Service.LessonProgress(r.Context(), user.TenantID, chi.URLParam(r, "enrollmentID"))
	if err != nil {
		h.writeError(w, r, err, "lesson_progress_failed", "failed to load lesson progress")
		return
	}
	api.Success(w, progress, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload lessonProgressPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	enrollment, err := h.Service.RecordLessonProgress(r.Context(), user.TenantID,
		chi.URLParam(r, "enrollmentID"), chi.URLParam(r, "lessonID"), user.UserID,
		payload.ProgressPercentage, payload.TimeSpentMinutes, payload.LastPosition)
	if err != nil {
		h.writeError(w, r, err, "lesson_progress_failed", "failed to record lesson progress")
		return
	}
	api.Success(w, enrollment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, courses.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "course or enrollment not found", requestID)
	case errors.Is(err, courses.ErrLessonNotFound):
		api.Fail(w, http.StatusNotFound, "lesson_not_found", "lesson not found", requestID)
	case errors.Is(err, courses.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed for this enrollment", requestID)
	case errors.Is(err, courses.ErrAlreadyEnrolled):
		api.Fail(w, http.StatusConflict, "already_enrolled", "already enrolled in this course", requestID)
	case errors.Is(err, courses.ErrInvalidProgress):
		api.Fail(w, http.StatusBadRequest, "invalid_progress", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
