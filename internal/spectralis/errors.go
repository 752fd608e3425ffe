package spectralis

import (
	"errors"
	"fmt"
)

var (
	// ErrFileRead marks a B-scan (or present SLO) file that could not be opened,
	// parsed or decoded. Fatal for the read.
	ErrFileRead = errors.New("dicom file could not be read")
	// ErrMissingField marks a required SLO attribute that is absent.
	ErrMissingField = errors.New("required field missing")
)

// FileError reports a file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFileRead, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func (e *FileError) Is(target error) bool { return target == ErrFileRead }

// FieldError reports a required attribute missing from a dataset.
type FieldError struct {
	Field string
	Path  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s in %s", ErrMissingField, e.Field, e.Path)
}

func (e *FieldError) Is(target error) bool { return target == ErrMissingField }
