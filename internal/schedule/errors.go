package schedule

import (
	"fmt"

	"github.com/rohmanhakim/recrawler/pkg/failure"
)

type ScheduleErrorCause string

const (
	ErrCauseNaNScore     ScheduleErrorCause = "NaN score"
	ErrCauseMalformedKey ScheduleErrorCause = "malformed key"
	ErrCauseStore        ScheduleErrorCause = "store failure"
)

type ScheduleError struct {
	Message string
	Cause   ScheduleErrorCause
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule error: %s: %s", e.Cause, e.Message)
}

func (e *ScheduleError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// Is allows errors.Is to match ScheduleError types
func (e *ScheduleError) Is(target error) bool {
	_, ok := target.(*ScheduleError)
	return ok
}
