// Package errs defines the error taxonomy shared by the gateway packages.
// Concrete error types live next to the code that produces them and match
// these sentinels through errors.Is.
package errs

import "errors"

var (
	ErrReadinessTimeout      = errors.New("readiness timeout")
	ErrIntrospectionFailed   = errors.New("introspection failed")
	ErrSchemaConflict        = errors.New("schema conflict")
	ErrMissingContentType    = errors.New("no content-type specified")
	ErrUnexpectedContentType = errors.New("unexpected content-type")
	ErrMalformedResponseBody = errors.New("malformed response body")
	ErrDegenerateOperation   = errors.New("degenerate operation")
	ErrUnknownField          = errors.New("unknown field")
	ErrExecution             = errors.New("execution error")
)

// Class groups errors by how far their effect reaches.
type Class string

const (
	// ClassFatal errors abort startup.
	ClassFatal   Class = "fatal"
	// ClassCall errors fail one backend call.
	ClassCall    Class = "call"
	// ClassRequest errors reject a client request before dispatch.
	ClassRequest Class = "request"
	// ClassField errors null out a single field of a response.
	ClassField   Class = "field"
	ClassUnknown Class = "unknown"
)

// ClassOf classifies err by the first sentinel it matches.
func ClassOf(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrReadinessTimeout),
		errors.Is(err, ErrIntrospectionFailed),
		errors.Is(err, ErrSchemaConflict):
		return ClassFatal
	case errors.Is(err, ErrMissingContentType),
		errors.Is(err, ErrUnexpectedContentType),
		errors.Is(err, ErrMalformedResponseBody),
		errors.Is(err, ErrDegenerateOperation):
		return ClassCall
	case errors.Is(err, ErrUnknownField):
		return ClassRequest
	case errors.Is(err, ErrExecution):
		return ClassField
	}
	return ClassUnknown
}

// Code returns the GraphQL extensions code reported to clients for err, or
// "" when err carries none.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownField):
		return "UNKNOWN_FIELD"
	case errors.Is(err, ErrDegenerateOperation):
		return "DEGENERATE_OPERATION"
	case errors.Is(err, ErrMissingContentType),
		errors.Is(err, ErrUnexpectedContentType),
		errors.Is(err, ErrMalformedResponseBody):
		return "BAD_BACKEND_RESPONSE"
	}
	return ""
}
