package courses

const (
	EnrollmentStatusEnrolled   = "enrolled"
	EnrollmentStatusInProgress = "in_progress"
	EnrollmentStatusCompleted  = "completed"

	LessonStatusNotStarted = "not_started"
	LessonStatusInProgress = "in_progress"
	LessonStatusCompleted  = "completed"
)
