package script

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFileProperty is returned when a page header has no file key
	ErrMissingFileProperty = errors.New("Missing file property")
	// ErrTargetFileNotFound is returned when a page's file does not exist
	ErrTargetFileNotFound = errors.New("can't find target file")
	// ErrInvalidHeader is returned for a header value that cannot be parsed
	ErrInvalidHeader = errors.New("invalid front matter")
)

// PageError ties a load failure to the script page that caused it
type PageError struct {
	Path string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%v in script page %s", e.Err, e.Path)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
