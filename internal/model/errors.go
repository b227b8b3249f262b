package model

import (
	"errors"
	"fmt"

	"collabtodo/pkg/rbac"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUserNotFound       = errors.New("user not found with this email address")
	ErrAlreadyMember      = errors.New("user is already a member of this project")
	ErrLastOwner          = errors.New("cannot remove the last owner of a project, transfer ownership first")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("invalid or expired token")
)

// ValidationError is returned for input rejected before any storage call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Denied wraps a permission table rejection so that it matches
// ErrPermissionDenied with errors.Is and keeps the descriptive message.
func Denied(action string, cause *rbac.PermissionDeniedError) error {
	return &DeniedError{Action: action, Cause: cause}
}

type DeniedError struct {
	Action string
	Cause  *rbac.PermissionDeniedError
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("you don't have permission to %s: %v", e.Action, e.Cause)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func (e *DeniedError) Unwrap() error {
	return e.Cause
}
