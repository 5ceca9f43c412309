package service

import (
	"errors"
	"fmt"
)

// Error classes. Every sentinel below wraps exactly one of them so handlers can
// branch on the class while tests assert on the precise cause.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	// ErrItemIDsRequired indicates an assign call without item ids.
	ErrItemIDsRequired = fmt.Errorf("%w: at least one item id is required", ErrValidation)
	// ErrInvalidItemKind indicates an item kind outside resource, tool and task.
	ErrInvalidItemKind = fmt.Errorf("%w: item kind must be resource, tool or task", ErrValidation)
	// ErrInvalidAudienceType indicates an audience that is neither user nor role.
	ErrInvalidAudienceType = fmt.Errorf("%w: audience type must be user or role", ErrValidation)
	// ErrAudienceEmpty indicates an audience without targets for its type.
	ErrAudienceEmpty = fmt.Errorf("%w: audience must name at least one target", ErrValidation)
	// ErrUnknownRole indicates a role tag outside the role enum.
	ErrUnknownRole = fmt.Errorf("%w: unknown role", ErrValidation)
	// ErrInvalidDueDate indicates an unparsable due date.
	ErrInvalidDueDate = fmt.Errorf("%w: due date must be RFC3339", ErrValidation)
	// ErrInvalidCompletionStatus indicates a status outside the completion lifecycle.
	ErrInvalidCompletionStatus = fmt.Errorf("%w: status must be NOT_STARTED, IN_PROGRESS or COMPLETE", ErrValidation)
	// ErrCompletionRegression indicates an attempt to move a completion backwards.
	ErrCompletionRegression = fmt.Errorf("%w: completion status cannot move backwards", ErrValidation)
	// ErrEmailTaken indicates a user email collision.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", ErrValidation)

	// ErrItemNotFound indicates a catalog item that does not exist.
	ErrItemNotFound = fmt.Errorf("item %w", ErrNotFound)
	// ErrAssignmentNotFound indicates an assignment that does not exist or is not visible to the caller.
	ErrAssignmentNotFound = fmt.Errorf("assignment %w", ErrNotFound)
	// ErrUserNotFound indicates a user that does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
)

// storageError marks a persistence failure while keeping the cause inspectable.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// validationError marks a struct validation failure.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
