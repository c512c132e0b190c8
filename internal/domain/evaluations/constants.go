package evaluations

const (
	CycleStatusDraft  = "draft"
	CycleStatusActive = "active"
	CycleStatusClosed = "closed"

	EvaluationStatusDraft     = "draft"
	EvaluationStatusSubmitted = "submitted"

	TypeSelf    = "self"
	TypeManager = "manager"
	TypePeer    = "peer"
)

var EvaluationTypes = []string{TypeSelf, TypeManager, TypePeer}

const (
	MinScore = 1
	MaxScore = 5
)
