package stitch

import (
	"fmt"
	"strings"

	"github.com/hanpama/stitchgate/internal/errs"
)

// IntrospectionError reports a service whose schema could not be fetched or
// decoded.
type IntrospectionError struct {
	Service string
	Err     error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspect service %q: %v", e.Service, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

func (e *IntrospectionError) Is(target error) bool { return target == errs.ErrIntrospectionFailed }

// ConflictError reports a type or field that services declare
// incompatibly. Field is empty when the type kinds differ.
type ConflictError struct {
	Type     string
	Field    string
	Services []string
	Reason   string
}

func (e *ConflictError) Error() string {
	services := strings.Join(e.Services, ", ")
	if e.Field == "" {
		return fmt.Sprintf("conflict on type %q between services %s: %s", e.Type, services, e.Reason)
	}
	return fmt.Sprintf("conflict on field %s.%s between services %s: %s", e.Type, e.Field, services, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == errs.ErrSchemaConflict }
