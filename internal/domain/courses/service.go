package courses

import (
	"context"
	"fmt"
	"log/slog"
)

type Notifier interface {
	Send(ctx context.Context, tenantID, userID, kind, title, body string) error
}

type Service struct {
	Store    *Store
	Notifier Notifier
}

func NewService(store *Store, notifier Notifier) *Service {
	return &Service{Store: store, Notifier: notifier}
}

func (s *Service) CreateCourse(ctx context.Context, tenantID, title, description, category string) (Course, error) {
	return s.Store.CreateCourse(ctx, tenantID, title, description, category)
}

func (s *Service) GetCourse(ctx context.Context, tenantID, courseID string) (Course, error) {
	return s.Store.GetCourse(ctx, tenantID, courseID)
}

func (s *Service) ListCourses(ctx context.Context, tenantID, category string, limit, offset int) ([]Course, error) {
	return s.Store.ListCourses(ctx, tenantID, category, limit, offset)
}

func (s *Service) AddLesson(ctx context.Context, tenantID, courseID, title string, position, durationMinutes int) (Lesson, error) {
	if _, err := s.Store.GetCourse(ctx, tenantID, courseID); err != nil {
		return Lesson{}, err
	}
	return s.Store.AddLesson(ctx, courseID, title, position, durationMinutes)
}

func (s *Service) Lessons(ctx context.Context, tenantID, courseID string) ([]Lesson, error) {
	if _, err := s.Store.GetCourse(ctx, tenantID, courseID); err != nil {
		return nil, err
	}
	return s.Store.ListLessons(ctx, courseID)
}

func (s *Service) Enroll(ctx context.Context, tenantID, userID, courseID string) (Enrollment, error) {
	if _, err := s.Store.GetCourse(ctx, tenantID, courseID); err != nil {
		return Enrollment{}, err
	}
	return s.Store.Enroll(ctx, tenantID, userID, courseID)
}

func (s *Service) Enrollments(ctx context.Context, tenantID, userID string, limit, offset int) ([]Enrollment, error) {
	return s.Store.ListEnrollments(ctx, tenantID, userID, limit, offset)
}

func (s *Service) LessonProgress(ctx context.Context, tenantID, enrollmentID string) ([]LessonProgress, error) {
	if _, err := s.Store.GetEnrollment(ctx, tenantID, enrollmentID); err != nil {
		return nil, err
	}
	return s.Store.ListLessonProgress(ctx, enrollmentID)
}

// RecordLessonProgress updates one lesson for the caller's own
// enrollment and returns the refreshed rollup.
func (s *Service) RecordLessonProgress(ctx context.Context, tenantID, enrollmentID, lessonID, actorID string, percentage float64, timeSpentMinutes, lastPosition int) (Enrollment, error) {
	if percentage < 0 || percentage > 100 {
		return Enrollment{}, fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidProgress)
	}
	if timeSpentMinutes < 0 {
		return Enrollment{}, fmt.Errorf("%w: time spent cannot be negative", ErrInvalidProgress)
	}
	if lastPosition < 0 {
		return Enrollment{}, fmt.Errorf("%w: last position cannot be negative", ErrInvalidProgress)
	}
	enrollment, err := s.Store.GetEnrollment(ctx, tenantID, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	if enrollment.UserID != actorID {
		return Enrollment{}, ErrForbidden
	}

	wasCompleted := enrollment.Status == EnrollmentStatusCompleted
	updated, err := s.Store.UpdateLessonProgress(ctx, tenantID, enrollmentID, lessonID, percentage, timeSpentMinutes, lastPosition)
	if err != nil {
		return Enrollment{}, err
	}
	if !wasCompleted && updated.Status == EnrollmentStatusCompleted {
		s.notify(ctx, tenantID, updated.UserID, "course_completed", "Course completed", updated.CourseID)
	}
	return updated, nil
}

func (s *Service) notify(ctx context.Context, tenantID, userID, kind, title, body string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, tenantID, userID, kind, title, body); err != nil {
		slog.Warn("notification delivery failed", "kind", kind, "error", err)
	}
}
