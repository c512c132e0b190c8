package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Event struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	ActorID   string          `json:"actorId,omitempty"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	ClientIP  string          `json:"clientIp,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Recorder struct {
	DB *pgxpool.Pool
}

func NewRecorder(db *pgxpool.Pool) *Recorder {
	return &Recorder{DB: db}
}

// Record appends an audit event. Auditing is best-effort: a write
// failure is logged and swallowed so it never fails the operation it
// describes.
func (r *Recorder) Record(ctx context.Context, tenantID, actorID, action, entity, entityID, requestID, clientIP string, detail any) {
	var payload []byte
	if detail != nil {
		encoded, err := json.Marshal(detail)
		if err != nil {
			slog.Warn("audit detail encode failed", "action", action, "error", err)
		} else {
			payload = encoded
		}
	}
	if _, err := r.DB.Exec(ctx, `
    INSERT INTO audit_events (tenant_id, actor_id, action, entity, entity_id, request_id, client_ip, detail)
    VALUES ($1, NULLIF($2,'')::uuid, $3, $4, NULLIF($5,'')::uuid, NULLIF($6,''), NULLIF($7,''), $8)
  `, tenantID, actorID, action, entity, entityID, requestID, clientIP, payload); err != nil {
		slog.Warn("audit write failed", "action", action, "error", err)
	}
}

type Filter struct {
	ActorID string
	Entity  string
	Action  string
}

func (r *Recorder) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Event, error) {
	query := `
    SELECT id, tenant_id, COALESCE(actor_id::text, ''), action, entity, COALESCE(entity_id::text, ''),
           COALESCE(request_id, ''), COALESCE(client_ip, ''), detail, created_at
    FROM audit_events
    WHERE tenant_id = $1
  `
	args := []any{tenantID}
	if filter.ActorID != "" {
		query += " AND actor_id = $2"
		args = append(args, filter.ActorID)
	}
	if filter.Entity != "" {
		query += fmt.Sprintf(" AND entity = $%d", len(args)+1)
		args = append(args, filter.Entity)
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.ID, &event.TenantID, &event.ActorID, &event.Action, &event.Entity,
			&event.EntityID, &event.RequestID, &event.ClientIP, &event.Detail, &event.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}
