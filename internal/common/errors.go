// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// View errors.
	ErrViewIncomplete = errors.New("view incomplete")

	// Target errors.
	ErrTargetGone = errors.New("target gone")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// TargetGoneError carries the reason a refresh target could not be reached.
type TargetGoneError struct {
	Target string
	Reason string
}

func (e *TargetGoneError) Error() string {
	return fmt.Sprintf("target %q gone: %s", e.Target, e.Reason)
}

func (e *TargetGoneError) Unwrap() error {
	return ErrTargetGone
}

// NewTargetGoneError creates a TargetGoneError.
func NewTargetGoneError(target, reason string) error {
	return &TargetGoneError{Target: target, Reason: reason}
}

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

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTargetGone) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
