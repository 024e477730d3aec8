package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

// Service layer errors
var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Set / topic errors
	ErrSetNotFound     = errors.New("practice set not found")
	ErrSetEmpty        = errors.New("practice set has no questions")
	ErrInvalidLevel    = errors.New("invalid level")
	ErrTopicNotFound   = errors.New("topic not found")
	ErrSetAccessDenied = errors.New("set is not accessible yet")
	ErrLevelLocked     = errors.New("level is locked until the previous level is completed")

	// Attempt errors
	ErrAttemptNotRecorded = errors.New("attempt did not meet the recording criteria")

	// Test errors
	ErrTestNotFound = errors.New("test not found")
	ErrTestClosed   = errors.New("test is outside its open window")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// Re-export validation error types so callers only import services
type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

// PermissionError carries the denied subject and the gating reason, so the
// transport layer can answer 403 with something actionable.
type PermissionError struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for user %s: %s %s (%s)", pe.UserID, pe.Action, pe.Resource, pe.Reason)
}

func NewPermissionError(userID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

// IsNotFound checks if error indicates a missing resource
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSetNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsForbidden checks if error indicates an access gate rejection
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSetAccessDenied) ||
		errors.Is(err, ErrLevelLocked) ||
		errors.Is(err, ErrTestClosed) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error indicates a malformed or rule-violating request
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidLevel) ||
		errors.Is(err, ErrSetEmpty) {
		return true
	}
	var ves ValidationErrors
	return errors.As(err, &ves)
}
