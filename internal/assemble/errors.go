package assemble

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// TemplateReadError reports a header or footer that could not be read.
// It is fatal for the whole pass and is returned before any file is written.
type TemplateReadError struct {
	Path string
	Err  error
}

func (e *TemplateReadError) Error() string {
	return fmt.Sprintf("read template %s: %v", e.Path, e.Err)
}

func (e *TemplateReadError) Unwrap() []error {
	return []error{e.Err, ferrors.FileSystemError("template read failure").
		WithContext("path", e.Path).Build()}
}

// WriteError reports a destination file that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{e.Err, ferrors.FileSystemError("destination write failure").
		WithContext("path", e.Path).Build()}
}

// FileError reports a content file whose expansion failed.
type FileError struct {
	Source string
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Source, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
