// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Dataset errors.
	ErrParse           = errors.New("malformed tabular input")
	ErrMissingColumn   = errors.New("column not found")
	ErrUnknownCategory = errors.New("unknown category level")
	ErrInvalidSplit    = errors.New("split fraction must be in (0, 1)")

	// Training errors.
	ErrInsufficientData = errors.New("insufficient examples of a class")
	ErrUntrainedModel   = errors.New("model has not been trained")

	// Evaluation errors.
	ErrInvalidThreshold = errors.New("threshold must be in [0, 1]")

	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Artifact errors.
	ErrArtifactVersion = errors.New("unsupported model artifact version")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
