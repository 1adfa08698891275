package executor

import (
	"context"

	language "github.com/hanpama/stitchgate/internal/language"
)

// Runtime resolves fields for the Executor.
//
// BatchResolveAsync is called once per async depth with only the tasks that
// can still reach the response, and must return one result per task in task
// order; one failed result does not fail the others. Runtimes may
// be shared by concurrent operations and must not modify source or args.
type Runtime interface {
	// ResolveSync resolves a field not marked async. (nil, nil) is null.
	ResolveSync(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error)

	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the object type of a value of an interface or union.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue turns a scalar or enum value into a JSON-safe one.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// ResolveInfo describes the field being resolved and the operation it
// belongs to.
type ResolveInfo struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// ResponseName is the alias if present, the field name otherwise.
	ResponseName string
	Path         Path
	Fields       []*language.Field

	Operation *language.OperationDefinition
	Document  *language.QueryDocument
	// Variables are the coerced operation variables.
	Variables map[string]any
}

type AsyncResolveTask struct {
	ResolveInfo
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
	// Errors are additional located errors reported while producing Value,
	// such as errors relayed from a remote service. They are appended to the
	// response as is.
	Errors []GraphQLError
}
