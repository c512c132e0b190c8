package goals

import "errors"

var (
	ErrNotFound      = errors.New("goal not found")
	ErrCycleNotFound = errors.New("evaluation cycle not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidState  = errors.New("invalid goal state")
)
