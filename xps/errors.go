package xps

import (
	"errors"
	"fmt"
)

var (
	ErrNoPage        = errors.New("no page is open")
	ErrPageOpen      = errors.New("a page is already open")
	ErrDuplicatePart = errors.New("duplicate part")
	ErrFinished      = errors.New("session already finished")
)

// ExportError reports a failure while serializing one object of a page.
type ExportError struct {
	Page   int    // 1-based page number
	Object string // object name, may be empty
	Err    error
}

func (e *ExportError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("page %d: object %q: %v", e.Page, e.Object, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
