package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TypeGoalSubmitted       = "goal_submitted"
	TypeGoalApproved        = "goal_approved"
	TypeGoalRejected        = "goal_rejected"
	TypeEvaluationSubmitted = "evaluation_submitted"
	TypeCourseCompleted     = "course_completed"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Mailer mirrors the platform email sender so tests can stub delivery.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	DB     *pgxpool.Pool
	Mailer Mailer
}

func NewService(db *pgxpool.Pool, mailer Mailer) *Service {
	return &Service{DB: db, Mailer: mailer}
}

// Send stores an in-app notification and mirrors it to email when a
// mailer is configured. Email failure does not fail the send.
func (s *Service) Send(ctx context.Context, tenantID, userID, kind, title, body string) error {
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (tenant_id, user_id, type, title, body)
    VALUES ($1,$2,$3,$4,$5)
  `, tenantID, userID, kind, title, body); err != nil {
		return err
	}

	if s.Mailer != nil {
		var email string
		err := s.DB.QueryRow(ctx, `
      SELECT email FROM users WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
    `, tenantID, userID).Scan(&email)
		if err == nil {
			if err := s.Mailer.Send(ctx, email, title, body); err != nil {
				slog.Warn("notification email failed", "type", kind, "error", err)
			}
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	query := `
    SELECT id, tenant_id, user_id, type, title, COALESCE(body, ''), read_at, created_at
    FROM notifications
    WHERE tenant_id = $1 AND user_id = $2
  `
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT $3 OFFSET $4"

	rows, err := s.DB.Query(ctx, query, tenantID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, tenantID, userID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications
    WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL
  `, tenantID, userID).Scan(&count)
	return count, err
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND id = $3 AND read_at IS NULL
  `, tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL
  `, tenantID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
