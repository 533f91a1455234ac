package scheduler

import (
	"fmt"
	"strings"

	"github.com/rohmanhakim/recrawler/pkg/failure"
)

type SchedulerErrorCause string

const (
	ErrCauseInvalidPath     SchedulerErrorCause = "invalid path"
	ErrCauseMemory          SchedulerErrorCause = "memory"
	ErrCauseInternal        SchedulerErrorCause = "internal"
	ErrCauseInvalidArgument SchedulerErrorCause = "invalid argument"
)

// SchedulerError is the operation-level error record. Message chains
// the failing call site with collaborator messages, outermost first,
// mirroring how the record is built up while an operation unwinds.
type SchedulerError struct {
	Message string
	Cause   SchedulerErrorCause
}

// newSchedulerError joins the message fragments into one chained record.
func newSchedulerError(cause SchedulerErrorCause, fragments ...string) *SchedulerError {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return &SchedulerError{
		Message: strings.Join(parts, ": "),
		Cause:   cause,
	}
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error: %s: %s", e.Cause, e.Message)
}

func (e *SchedulerError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// Is allows errors.Is to match SchedulerError types
func (e *SchedulerError) Is(target error) bool {
	_, ok := target.(*SchedulerError)
	return ok
}
