package fileutil

import (
	"errors"
	"os"
)

// EnsureDir creates the directory (and any missing parents) if it does
// not exist yet. An existing directory is not an error.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return &FileError{
			Message: "path exists but is not a directory",
			Cause:   ErrCausePathError,
			Path:    path,
		}
	}
	if !errors.Is(err, os.ErrNotExist) {
		return &FileError{
			Message: err.Error(),
			Cause:   ErrCausePathError,
			Path:    path,
		}
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return &FileError{
			Message: err.Error(),
			Cause:   ErrCauseCreateFailure,
			Path:    path,
		}
	}
	return nil
}

// RemoveIfExists deletes the file or empty directory at path.
// A missing path is not an error.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &FileError{
			Message: err.Error(),
			Cause:   ErrCauseRemoveFailure,
			Path:    path,
		}
	}
	return nil
}
