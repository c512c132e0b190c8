package courses

import "errors"

var (
	ErrNotFound        = errors.New("course not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrInvalidProgress = errors.New("invalid progress value")
	ErrForbidden       = errors.New("not allowed for this enrollment")
)
