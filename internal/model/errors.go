package model

import (
	"errors"
	"fmt"
)

// Root error kinds. Every domain error wraps exactly one of them so that
// callers can branch on the kind with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrAlreadyExists    = errors.New("already exists")
	ErrBlocked          = errors.New("blocked")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
)

func kind(root error, msg string) error {
	return fmt.Errorf("%w: %s", root, msg)
}
