package assessment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("assessment not found")
	ErrCompetencyNotFound = errors.New("competency not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrForbidden          = errors.New("actor not allowed")
)

// ValidationError reports malformed transition input. It is never coerced.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InvalidTransitionError is returned when an action is illegal from the
// current status, including when a concurrent writer changed it first.
type InvalidTransitionError struct {
	AssessmentID string
	From         Status
	Action       Action
	Lost         bool
}

func (e *InvalidTransitionError) Error() string {
	if e.Lost {
		return fmt.Sprintf("cannot %s assessment %s: status changed concurrently (now %s)", e.Action, e.AssessmentID, e.From)
	}
	return fmt.Sprintf("cannot %s assessment %s from status %s", e.Action, e.AssessmentID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ForbiddenError is returned when the actor may not perform the action on
// this assessment, e.g. a submission by someone other than its assessor.
type ForbiddenError struct {
	AssessmentID string
	ActorID      string
	Action       Action
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s may not %s assessment %s", e.ActorID, e.Action, e.AssessmentID)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
