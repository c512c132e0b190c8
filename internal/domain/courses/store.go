package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const courseColumns = `
    c.id, c.tenant_id, c.title, COALESCE(c.description, ''), COALESCE(c.category, ''),
    (SELECT COUNT(1) FROM lessons l WHERE l.course_id = c.id), c.created_at, c.updated_at`

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.TenantID, &c.Title, &c.Description, &c.Category, &c.LessonCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCourse(ctx context.Context, tenantID, title, description, category string) (Course, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO courses AS c (tenant_id, title, description, category)
    VALUES ($1,$2,$3,$4)
    RETURNING`+courseColumns, tenantID, title, nullIfEmpty(description), nullIfEmpty(category))
	return scanCourse(row)
}

func (s *Store) GetCourse(ctx context.Context, tenantID, courseID string) (Course, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+courseColumns+` FROM courses c WHERE c.tenant_id = $1 AND c.id = $2
  `, tenantID, courseID)
	course, err := scanCourse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	return course, err
}

func (s *Store) ListCourses(ctx context.Context, tenantID, category string, limit, offset int) ([]Course, error) {
	query := `SELECT` + courseColumns + ` FROM courses c WHERE c.tenant_id = $1`
	args := []any{tenantID}
	if category != "" {
		query += " AND c.category = $2"
		args = append(args, category)
	}
	query += fmt.Sprintf(" ORDER BY c.title LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, course)
	}
	return out, nil
}

func (s *Store) AddLesson(ctx context.Context, courseID, title string, position, durationMinutes int) (Lesson, error) {
	var l Lesson
	err := s.DB.QueryRow(ctx, `
    INSERT INTO lessons (course_id, title, position, duration_minutes)
    VALUES ($1,$2,$3,$4)
    RETURNING id, course_id, title, position, duration_minutes, created_at
  `, courseID, title, position, durationMinutes).Scan(
		&l.ID, &l.CourseID, &l.Title, &l.Position, &l.DurationMinutes, &l.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return Lesson{}, ErrNotFound
	}
	return l, err
}

func (s *Store) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, course_id, title, position, duration_minutes, created_at
    FROM lessons
    WHERE course_id = $1
    ORDER BY position
  `, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.DurationMinutes, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

const enrollmentColumns = `
    id, tenant_id, user_id, course_id, status, progress_percentage,
    enrolled_at, completed_at, last_accessed_at`

func scanEnrollment(row pgx.Row) (Enrollment, error) {
	var e Enrollment
	err := row.Scan(&e.ID, &e.TenantID, &e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage,
		&e.EnrolledAt, &e.CompletedAt, &e.LastAccessedAt)
	return e, err
}

// Enroll creates the enrollment and materializes a not_started progress
// row for every lesson in one transaction, so later updates are plain
// UPDATEs instead of upserts.
func (s *Store) Enroll(ctx context.Context, tenantID, userID, courseID string) (Enrollment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Enrollment{}, fmt.Errorf("begin enroll: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
    INSERT INTO course_enrollments (tenant_id, user_id, course_id, status)
    VALUES ($1,$2,$3,$4)
    RETURNING`+enrollmentColumns, tenantID, userID, courseID, EnrollmentStatusEnrolled)
	enrollment, err := scanEnrollment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Enrollment{}, ErrAlreadyEnrolled
			case "23503":
				return Enrollment{}, ErrNotFound
			}
		}
		return Enrollment{}, err
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO lesson_progress (enrollment_id, lesson_id, status)
    SELECT $1, id, $2 FROM lessons WHERE course_id = $3
  `, enrollment.ID, LessonStatusNotStarted, courseID); err != nil {
		return Enrollment{}, fmt.Errorf("materialize lesson progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Enrollment{}, fmt.Errorf("commit enroll: %w", err)
	}
	return enrollment, nil
}

func (s *Store) GetEnrollment(ctx context.Context, tenantID, enrollmentID string) (Enrollment, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+enrollmentColumns+` FROM course_enrollments WHERE tenant_id = $1 AND id = $2
  `, tenantID, enrollmentID)
	enrollment, err := scanEnrollment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, ErrNotFound
	}
	return enrollment, err
}

func (s *Store) ListEnrollments(ctx context.Context, tenantID, userID string, limit, offset int) ([]Enrollment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+enrollmentColumns+`
    FROM course_enrollments
    WHERE tenant_id = $1 AND user_id = $2
    ORDER BY enrolled_at DESC
    LIMIT $3 OFFSET $4
  `, tenantID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, enrollment)
	}
	return out, nil
}

func (s *Store) ListLessonProgress(ctx context.Context, enrollmentID string) ([]LessonProgress, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lp.id, lp.enrollment_id, lp.lesson_id, lp.status, lp.progress_percentage,
           lp.time_spent_minutes, lp.last_position, lp.completed_at, lp.updated_at
    FROM lesson_progress lp
    JOIN lessons l ON lp.lesson_id = l.id
    WHERE lp.enrollment_id = $1
    ORDER BY l.position
  `, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LessonProgress
	for rows.Next() {
		var lp LessonProgress
		if err := rows.Scan(&lp.ID, &lp.EnrollmentID, &lp.LessonID, &lp.Status, &lp.ProgressPercentage,
			&lp.TimeSpentMinutes, &lp.LastPosition, &lp.CompletedAt, &lp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, lp)
	}
	return out, nil
}

// UpdateLessonProgress writes one lesson's progress and recomputes the
// enrollment rollup in the same transaction. Time spent is additive;
// the percentage and last position overwrite the stored values, and
// last_accessed_at refreshes on every touch.
func (s *Store) UpdateLessonProgress(ctx context.Context, tenantID, enrollmentID, lessonID string, percentage float64, timeSpentMinutes, lastPosition int) (Enrollment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Enrollment{}, fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `
    SELECT lp.status
    FROM lesson_progress lp
    JOIN course_enrollments ce ON lp.enrollment_id = ce.id
    WHERE ce.tenant_id = $1 AND lp.enrollment_id = $2 AND lp.lesson_id = $3
    FOR UPDATE
  `, tenantID, enrollmentID, lessonID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return Enrollment{}, ErrLessonNotFound
	}
	if err != nil {
		return Enrollment{}, err
	}

	next := LessonStatusFor(percentage, current)
	if _, err := tx.Exec(ctx, `
    UPDATE lesson_progress
    SET status = $1,
        progress_percentage = $2,
        time_spent_minutes = time_spent_minutes + $3,
        last_position = $4,
        completed_at = CASE WHEN $1 = $5 AND completed_at IS NULL THEN now() ELSE completed_at END,
        updated_at = now()
    WHERE enrollment_id = $6 AND lesson_id = $7
  `, next, percentage, timeSpentMinutes, lastPosition, LessonStatusCompleted, enrollmentID, lessonID); err != nil {
		return Enrollment{}, fmt.Errorf("update lesson progress: %w", err)
	}

	var completed, total int
	if err := tx.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE status = $1),
           COUNT(1)
    FROM lesson_progress
    WHERE enrollment_id = $2
  `, LessonStatusCompleted, enrollmentID).Scan(&completed, &total); err != nil {
		return Enrollment{}, fmt.Errorf("count lesson progress: %w", err)
	}

	var enrollmentStatus string
	if err := tx.QueryRow(ctx, `
    SELECT status FROM course_enrollments WHERE id = $1
  `, enrollmentID).Scan(&enrollmentStatus); err != nil {
		return Enrollment{}, err
	}

	rollup, nextStatus, changed := EnrollmentAggregate(completed, total, enrollmentStatus)
	var row pgx.Row
	if changed {
		row = tx.QueryRow(ctx, `
      UPDATE course_enrollments
      SET status = $1, progress_percentage = $2,
          completed_at = CASE WHEN $1 = $3 AND completed_at IS NULL THEN now() ELSE completed_at END,
          last_accessed_at = now()
      WHERE id = $4
      RETURNING`+enrollmentColumns, nextStatus, rollup, EnrollmentStatusCompleted, enrollmentID)
	} else {
		row = tx.QueryRow(ctx, `
      UPDATE course_enrollments SET last_accessed_at = now()
      WHERE id = $1
      RETURNING`+enrollmentColumns, enrollmentID)
	}
	enrollment, err := scanEnrollment(row)
	if err != nil {
		return Enrollment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Enrollment{}, fmt.Errorf("commit progress update: %w", err)
	}
	return enrollment, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
