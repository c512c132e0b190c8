package goals

const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusInProgress      = "in_progress"
	StatusCompleted       = "completed"

	CategoryPerformance = "performance"
	CategorySkill       = "skill"
	CategoryBehavior    = "behavior"

	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

var Categories = []string{CategoryPerformance, CategorySkill, CategoryBehavior}
