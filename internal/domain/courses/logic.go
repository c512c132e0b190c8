package courses

import "math"

// LessonStatusFor maps a progress update to a lesson status. A zero
// percentage is a touch, not a start: the status stays as it was.
func LessonStatusFor(percentage float64, current string) string {
	switch {
	case percentage >= 100:
		return LessonStatusCompleted
	case percentage > 0:
		return LessonStatusInProgress
	default:
		return current
	}
}

// EnrollmentAggregate recomputes the course-level rollup from lesson
// counts. The status keys off completed lessons only: at zero percent
// the enrollment keeps whatever status it had. A course with no
// lessons leaves the enrollment untouched rather than dividing by zero.
func EnrollmentAggregate(completed, total int, current string) (percentage float64, status string, changed bool) {
	if total == 0 {
		return 0, current, false
	}
	percentage = math.Round(100 * float64(completed) / float64(total))
	switch {
	case completed == total:
		status = EnrollmentStatusCompleted
	case completed > 0:
		status = EnrollmentStatusInProgress
	default:
		status = current
	}
	return percentage, status, true
}
