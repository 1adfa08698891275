package httptp

import (
	"fmt"
	"strings"

	"github.com/hanpama/stitchgate/internal/errs"
)

// UnexpectedContentTypeError is returned when a backend answered with a
// media type that is not JSON.
type UnexpectedContentTypeError struct {
	ContentType string
}

func (e *UnexpectedContentTypeError) Error() string {
	return fmt.Sprintf("%s: %s", errs.ErrUnexpectedContentType, e.ContentType)
}

func (e *UnexpectedContentTypeError) Is(target error) bool {
	return target == errs.ErrUnexpectedContentType
}

// StatusError is returned for non-2xx responses that carry no GraphQL errors.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httptp: %s responded with status %d", e.Service, e.Code)
}

// Location points into the operation text a backend received.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// RemoteError is an error reported by a backend in the "errors" list.
type RemoteError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *RemoteError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s (at %s)", e.Message, strings.Join(parts, "."))
}

func (e *RemoteError) Is(target error) bool { return target == errs.ErrExecution }
