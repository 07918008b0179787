package generator

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by stage execution.
var (
	ErrPrerequisiteMissing     = errors.New("prerequisite missing")
	ErrTemplateVariableMissing = errors.New("template variable missing")
	ErrGeneration              = errors.New("generation failed")
)

// StageError tags a failure with the stage and operation it came from.
// It matches both its Kind and the underlying cause under errors.Is.
type StageError struct {
	Kind  error
	Stage Stage
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Stage, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageErr(kind error, stage Stage, op string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Op: op, Err: err}
}
