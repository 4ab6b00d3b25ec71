package errors

import (
	"errors"
	"fmt"
)

type SchedulerStoppedError struct{}

func NewSchedulerStoppedError() *SchedulerStoppedError {
	return &SchedulerStoppedError{}
}

func (e *SchedulerStoppedError) Error() string {
	return "scheduler is stopped"
}

func IsSchedulerStoppedError(err error) bool {
	var e *SchedulerStoppedError
	return errors.As(err, &e)
}

type AlreadyStartedError struct{}

func NewAlreadyStartedError() *AlreadyStartedError {
	return &AlreadyStartedError{}
}

func (e *AlreadyStartedError) Error() string {
	return "scheduler already started"
}

func IsAlreadyStartedError(err error) bool {
	var e *AlreadyStartedError
	return errors.As(err, &e)
}

// TaskPanicError wraps the value recovered from a panicking task.
type TaskPanicError struct {
	Value any
}

func NewTaskPanicError(value any) *TaskPanicError {
	return &TaskPanicError{Value: value}
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

func IsTaskPanicError(err error) bool {
	var e *TaskPanicError
	return errors.As(err, &e)
}

// TaskDiscardedError is returned for queued work dropped at shutdown.
type TaskDiscardedError struct {
	ID string
}

func NewTaskDiscardedError(id string) *TaskDiscardedError {
	return &TaskDiscardedError{ID: id}
}

func (e *TaskDiscardedError) Error() string {
	return fmt.Sprintf("task %s discarded at shutdown", e.ID)
}

func IsTaskDiscardedError(err error) bool {
	var e *TaskDiscardedError
	return errors.As(err, &e)
}

type ResourceNotFoundError struct {
	Kind string
	ID   string
}

func NewResourceNotFoundError(kind, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Kind: kind, ID: id}
}

func NewTaskNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("task", id)
}

func (e *ResourceNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

type InvalidArgumentError struct {
	Field  string
	Reason string
}

func NewInvalidArgumentError(field, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsInvalidArgumentError(err error) bool {
	var e *InvalidArgumentError
	return errors.As(err, &e)
}
