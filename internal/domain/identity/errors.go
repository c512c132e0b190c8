package identity

import "errors"

var (
	ErrNotFound     = errors.New("user not found")
	ErrConflict     = errors.New("email already exists")
	ErrManagerCycle = errors.New("manager assignment would create a cycle")
)
