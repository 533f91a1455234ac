package pagedb

import (
	"fmt"

	"github.com/rohmanhakim/recrawler/pkg/failure"
)

type PageDBErrorCause string

const (
	ErrCauseStoreFailure PageDBErrorCause = "store failure"
	ErrCauseEncodeFailed PageDBErrorCause = "encode failed"
	ErrCauseInvalidPage  PageDBErrorCause = "invalid page"
)

type PageDBError struct {
	Message string
	Cause   PageDBErrorCause
	URL     string
}

func (e *PageDBError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("pagedb error: %s: %s: %s", e.Cause, e.URL, e.Message)
	}
	return fmt.Sprintf("pagedb error: %s: %s", e.Cause, e.Message)
}

func (e *PageDBError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// Is allows errors.Is to match PageDBError types
func (e *PageDBError) Is(target error) bool {
	_, ok := target.(*PageDBError)
	return ok
}
