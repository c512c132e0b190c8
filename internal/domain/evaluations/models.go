package evaluations

import "time"

type Cycle struct {
	ID                     string    `json:"id"`
	TenantID               string    `json:"tenantId"`
	Name                   string    `json:"name"`
	StartDate              time.Time `json:"startDate"`
	EndDate                time.Time `json:"endDate"`
	SelfEvaluationStart    time.Time `json:"selfEvaluationStart"`
	SelfEvaluationEnd      time.Time `json:"selfEvaluationEnd"`
	ManagerEvaluationStart time.Time `json:"managerEvaluationStart"`
	ManagerEvaluationEnd   time.Time `json:"managerEvaluationEnd"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// CycleInput carries the name and the scheduling windows for a new
// cycle. The windows are stored as supplied; ordering between the
// self and manager windows is the caller's responsibility.
type CycleInput struct {
	Name                   string
	StartDate              time.Time
	EndDate                time.Time
	SelfEvaluationStart    time.Time
	SelfEvaluationEnd      time.Time
	ManagerEvaluationStart time.Time
	ManagerEvaluationEnd   time.Time
}

type Evaluation struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenantId"`
	CycleID        string     `json:"cycleId"`
	EvaluateeID    string     `json:"evaluateeId"`
	EvaluatorID    string     `json:"evaluatorId"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	OverallScore   *float64   `json:"overallScore,omitempty"`
	OverallComment string     `json:"overallComment,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Score struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	GoalID       string    `json:"goalId"`
	Score        float64   `json:"score"`
	Achievement  float64   `json:"achievement"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ScoreInput is one goal's score in a submit request.
type ScoreInput struct {
	GoalID      string  `json:"goalId"`
	Score       float64 `json:"score"`
	Achievement float64 `json:"achievement"`
	Comment     string  `json:"comment,omitempty"`
}

// CycleResult is one evaluatee's outcome within a closed or active
// cycle, used by reporting.
type CycleResult struct {
	EvaluateeID        string   `json:"evaluateeId"`
	EvaluateeFirstName string   `json:"evaluateeFirstName"`
	EvaluateeLastName  string   `json:"evaluateeLastName"`
	EvaluationType     string   `json:"evaluationType"`
	OverallScore       *float64 `json:"overallScore,omitempty"`
	Status             string   `json:"status"`
}
