package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph         = errors.New("flow: invalid step graph")
	ErrTransitionNotAllowed = errors.New("flow: transition not allowed")
	ErrPrerequisiteMissing  = errors.New("flow: prerequisite missing")
	ErrIncomplete           = errors.New("flow: required fields missing")
	ErrLeaveFlow            = errors.New("flow: leave flow")
	ErrFlowClosed           = errors.New("flow: flow closed")
	ErrFlowCompleted        = errors.New("flow: flow already confirmed")
	ErrConfirmInProgress    = errors.New("flow: confirmation in progress")
	ErrPersistFailed        = errors.New("flow: persist booking failed")
	ErrAssignmentInProgress = errors.New("flow: assignment in progress")
	ErrNoAssignment         = errors.New("flow: no assignment at this step")
)

// MissingFieldsError lists the state fields that blocked a transition or a
// confirmation. It unwraps to ErrPrerequisiteMissing or ErrIncomplete.
type MissingFieldsError struct {
	Step   Step
	Fields []string
	kind   error
}

func (e *MissingFieldsError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%v: %s needs %s", e.kind, e.Step, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%v: %s", e.kind, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error { return e.kind }

func prerequisiteError(step Step, fields []string) error {
	return &MissingFieldsError{Step: step, Fields: fields, kind: ErrPrerequisiteMissing}
}

func incompleteError(fields []string) error {
	return &MissingFieldsError{Fields: fields, kind: ErrIncomplete}
}

// MissingFields extracts the field list from an error chain, if any.
func MissingFields(err error) []string {
	var mf *MissingFieldsError
	if errors.As(err, &mf) {
		return mf.Fields
	}
	return nil
}
