package goals

import "time"

type Goal struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenantId"`
	UserID             string     `json:"userId"`
	CycleID            string     `json:"cycleId"`
	ParentGoalID       string     `json:"parentGoalId,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	SuccessCriteria    string     `json:"successCriteria,omitempty"`
	Category           string     `json:"category"`
	Weight             float64    `json:"weight"`
	TargetValue        *float64   `json:"targetValue,omitempty"`
	CurrentValue       *float64   `json:"currentValue,omitempty"`
	ProgressPercentage float64    `json:"progressPercentage"`
	Status             string     `json:"status"`
	ApprovedBy         string     `json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type Progress struct {
	ID                 string    `json:"id"`
	GoalID             string    `json:"goalId"`
	ProgressPercentage float64   `json:"progressPercentage"`
	Comment            string    `json:"comment,omitempty"`
	UpdatedBy          string    `json:"updatedBy"`
	CreatedAt          time.Time `json:"createdAt"`
}

type ApprovalRecord struct {
	ID         string    `json:"id"`
	GoalID     string    `json:"goalId"`
	ApproverID string    `json:"approverId"`
	Decision   string    `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decidedAt"`
}

// PendingGoal is the manager approval-queue row: the goal plus just
// enough about its owner to render the queue.
type PendingGoal struct {
	Goal
	OwnerFirstName string `json:"ownerFirstName"`
	OwnerLastName  string `json:"ownerLastName"`
	CycleName      string `json:"cycleName"`
}
