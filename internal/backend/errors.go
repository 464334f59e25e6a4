package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("backend unavailable")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Message)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}
