package oada

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested resource does not exist
// (HTTP 404). Not-found is an expected condition for most of the tree this
// tool walks; callers treat the subtree as empty rather than failing.
var ErrNotFound = errors.New("resource not found")

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	Code int
	Path string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.Path)
}

// IsNotFound returns true if the error indicates the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
