package store

import (
	"fmt"

	"github.com/rohmanhakim/recrawler/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseInvalidPath StoreErrorCause = "invalid path"
	ErrCauseBusy        StoreErrorCause = "store busy"
	ErrCauseNotFound    StoreErrorCause = "not found"
	ErrCauseInternal    StoreErrorCause = "internal"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
	Path      string
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("store error: %s: %s: %s", e.Cause, e.Path, e.Message)
	}
	return fmt.Sprintf("store error: %s: %s", e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

// Is allows errors.Is to match StoreError types
func (e *StoreError) Is(target error) bool {
	_, ok := target.(*StoreError)
	return ok
}
