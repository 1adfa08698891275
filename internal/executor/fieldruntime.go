package executor

import (
	"context"
	"fmt"
	"sync"
)

// Resolver computes one field value from its parent value and arguments.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

// Value returns a Resolver that always yields v.
func Value(v any) Resolver {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

// Fail returns a Resolver that always fails with err.
func Fail(err error) Resolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// FieldRuntime is a Runtime over plain Go values. Fields resolve through the
// Resolver registered for "Type.field", or else read the entry of the same
// name from a map[string]any parent. Abstract values name their type in
// "__typename" and leaf values pass through unchanged.
//
// Async fields resolve one by one; every BatchResolveAsync call is kept and
// can be inspected with Batches.
type FieldRuntime struct {
	mu        sync.Mutex
	resolvers map[string]Resolver
	batches   [][]AsyncResolveTask
}

var _ Runtime = (*FieldRuntime)(nil)

func NewFieldRuntime(resolvers map[string]Resolver) *FieldRuntime {
	r := &FieldRuntime{resolvers: make(map[string]Resolver, len(resolvers))}
	for k, v := range resolvers {
		r.resolvers[k] = v
	}
	return r
}

// Set registers res for coordinate "Type.field".
func (r *FieldRuntime) Set(coordinate string, res Resolver) *FieldRuntime {
	r.mu.Lock()
	r.resolvers[coordinate] = res
	r.mu.Unlock()
	return r
}

// Batches returns the async batches received so far, oldest first.
func (r *FieldRuntime) Batches() [][]AsyncResolveTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]AsyncResolveTask(nil), r.batches...)
}

func (r *FieldRuntime) ResolveSync(ctx context.Context, info ResolveInfo, source any, args map[string]any) (any, error) {
	r.mu.Lock()
	res := r.resolvers[info.ObjectType+"."+info.Field]
	r.mu.Unlock()
	if res != nil {
		return res(ctx, source, args)
	}
	if m, ok := source.(map[string]any); ok {
		return m[info.Field], nil
	}
	return nil, nil
}

func (r *FieldRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	r.mu.Lock()
	r.batches = append(r.batches, append([]AsyncResolveTask(nil), tasks...))
	r.mu.Unlock()

	out := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := r.ResolveSync(ctx, t.ResolveInfo, t.Source, t.Args)
		out[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return out
}

func (r *FieldRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve the concrete type of %s from %T", abstractType, value)
}

func (r *FieldRuntime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}
