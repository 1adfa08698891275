package stitchrt

import (
	"fmt"

	"github.com/hanpama/stitchgate/internal/errs"
)

// ServiceError is a failed call to a backend service. It is reported on
// every root field the call was meant to resolve.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string { return e.Err.Error() }

func (e *ServiceError) Unwrap() error { return e.Err }

// Extensions names the service and, when known, the error code.
func (e *ServiceError) Extensions() map[string]any {
	ext := map[string]any{"serviceName": e.Service}
	if code := errs.Code(e.Err); code != "" {
		ext["code"] = code
	}
	return ext
}

// PlanError reports a selection no stitched service can resolve. Field is
// empty for a fragment on a type no candidate service declares.
type PlanError struct {
	Type  string
	Field string
}

func (e *PlanError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("no service declares type %s", e.Type)
	}
	return fmt.Sprintf("no service can resolve %s.%s", e.Type, e.Field)
}
