package fileutil

import (
	"fmt"

	"github.com/rohmanhakim/recrawler/pkg/failure"
)

type FileErrorCause string

const (
	ErrCausePathError     FileErrorCause = "path error"
	ErrCauseCreateFailure FileErrorCause = "create failed"
	ErrCauseRemoveFailure FileErrorCause = "remove failed"
)

type FileError struct {
	Message string
	Cause   FileErrorCause
	Path    string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file error: %s: %s", e.Cause, e.Message)
}

func (e *FileError) Severity() failure.Severity {
	return failure.SeverityFatal
}
