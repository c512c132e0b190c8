package evaluations

import "errors"

var (
	ErrNotFound      = errors.New("evaluation not found")
	ErrCycleNotFound = errors.New("evaluation cycle not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidState  = errors.New("invalid evaluation state")
	ErrInvalidScore  = errors.New("score out of range")
)
