package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jung-kurt/gofpdf"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/evaluations"
)

// Dashboard is the tenant-level summary behind the admin landing page.
type Dashboard struct {
	ActiveUsers          int            `json:"activeUsers"`
	GoalsByStatus        map[string]int `json:"goalsByStatus"`
	ActiveCycles         int            `json:"activeCycles"`
	PendingEvaluations   int            `json:"pendingEvaluations"`
	CompletedEnrollments int            `json:"completedEnrollments"`
}

type Service struct {
	DB          *pgxpool.Pool
	Evaluations *evaluations.Service
}

func NewService(db *pgxpool.Pool, evaluationSvc *evaluations.Service) *Service {
	return &Service{DB: db, Evaluations: evaluationSvc}
}

func (s *Service) Dashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	d := Dashboard{GoalsByStatus: map[string]int{}}

	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM users WHERE tenant_id = $1 AND status = 'active' AND deleted_at IS NULL
  `, tenantID).Scan(&d.ActiveUsers); err != nil {
		return Dashboard{}, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1) FROM goals WHERE tenant_id = $1 GROUP BY status
  `, tenantID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("count goals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Dashboard{}, err
		}
		d.GoalsByStatus[status] = count
	}

	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM evaluation_cycles WHERE tenant_id = $1 AND status = 'active'
  `, tenantID).Scan(&d.ActiveCycles); err != nil {
		return Dashboard{}, fmt.Errorf("count cycles: %w", err)
	}

	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM evaluations WHERE tenant_id = $1 AND status = 'draft'
  `, tenantID).Scan(&d.PendingEvaluations); err != nil {
		return Dashboard{}, fmt.Errorf("count evaluations: %w", err)
	}

	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM course_enrollments WHERE tenant_id = $1 AND status = 'completed'
  `, tenantID).Scan(&d.CompletedEnrollments); err != nil {
		return Dashboard{}, fmt.Errorf("count enrollments: %w", err)
	}

	return d, nil
}

// CycleResultsPDF renders a cycle's evaluation outcomes as a one-page
// table for offline review.
func (s *Service) CycleResultsPDF(ctx context.Context, tenantID, cycleID string) ([]byte, error) {
	cycle, results, err := s.Evaluations.CycleResults(ctx, tenantID, cycleID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Evaluation Results", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Evaluation Results: %s", cycle.Name))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("%s to %s, generated %s",
		cycle.StartDate.Format("2006-01-02"), cycle.EndDate.Format("2006-01-02"),
		time.Now().UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 8, "Employee", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Overall Score", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Status", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, result := range results {
		name := fmt.Sprintf("%s %s", result.EvaluateeFirstName, result.EvaluateeLastName)
		score := "-"
		if result.OverallScore != nil {
			score = fmt.Sprintf("%.2f", *result.OverallScore)
		}
		pdf.CellFormat(70, 8, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 8, result.EvaluationType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 8, score, "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, result.Status, "1", 1, "L", false, 0, "")
	}
	if len(results) == 0 {
		pdf.CellFormat(175, 8, "No evaluations in this cycle", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
