// Package stitchrt resolves operations against a stitched schema by
// delegating root fields to the services that own them.
//
// Root fields of the stitched schema are async. The root fields of a query
// arrive in one batch, those of a mutation one batch each, in order. For a
// batch the runtime plans which services resolve which part of each field,
// sends one operation per service, runs the calls concurrently and merges
// what comes back. Every other field is read from
// the delegated result by its response name.
package stitchrt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hanpama/stitchgate/internal/errs"
	executor "github.com/hanpama/stitchgate/internal/executor"
	httptp "github.com/hanpama/stitchgate/internal/httptp"
	language "github.com/hanpama/stitchgate/internal/language"
	stitch "github.com/hanpama/stitchgate/internal/stitch"
)

// Runtime implements executor.Runtime over a stitched schema.
type Runtime struct {
	unified *stitch.Unified
	opts    *Options
}

var _ executor.Runtime = (*Runtime)(nil)

func New(unified *stitch.Unified, opts ...Option) *Runtime {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	return &Runtime{unified: unified, opts: o}
}

// call is one operation sent to one service.
type call struct {
	sub    *stitch.Subschema
	fields language.SelectionSet
	tasks  []int
	req    *httptp.Request
	resp   *httptp.Response
	err    error
}

// fieldResult gathers the parts of one root field.
type fieldResult struct {
	values []any
	errors []executor.GraphQLError
	err    error
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	calls := r.plan(tasks, results)
	if err := r.dispatch(ctx, calls); err != nil {
		for _, c := range calls {
			for _, i := range c.tasks {
				results[i].Error = err
			}
		}
		return results
	}

	parts := make([]fieldResult, len(tasks))
	for _, c := range calls {
		collect(c, tasks, parts)
	}
	for i := range tasks {
		if results[i].Error != nil {
			continue
		}
		if parts[i].err != nil {
			results[i].Error = parts[i].err
			continue
		}
		value, err := mergeValues(parts[i].values)
		if err != nil {
			results[i].Error = fmt.Errorf("%s: %w", tasks[i].ResponseName, err)
			continue
		}
		results[i].Value = value
		results[i].Errors = parts[i].errors
	}
	return results
}

// plan groups the root fields by service, in order of first use. Fields
// that cannot be planned get their error in results.
func (r *Runtime) plan(tasks []executor.AsyncResolveTask, results []executor.AsyncResolveResult) []*call {
	p := &planner{unified: r.unified, doc: tasks[0].Document}
	var calls []*call
	bySub := make(map[*stitch.Subschema]*call)
	for i, task := range tasks {
		targets, err := p.planField(task)
		if err != nil {
			results[i].Error = err
			continue
		}
		for _, t := range targets {
			c := bySub[t.sub]
			if c == nil {
				c = &call{sub: t.sub}
				bySub[t.sub] = c
				calls = append(calls, c)
			}
			c.tasks = append(c.tasks, i)
			c.fields = append(c.fields, rootField(task, t.selection))
		}
	}
	for _, c := range calls {
		c.req = buildRequest(tasks[0].Operation, c.fields, tasks[0].Variables)
	}
	return calls
}

// dispatch runs the calls concurrently. Calls are detached from ctx so a
// client going away does not abort them; when ctx ends first dispatch
// returns its error and the late results are dropped.
func (r *Runtime) dispatch(ctx context.Context, calls []*call) error {
	credential := httptp.CredentialFromContext(ctx)
	detached := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, c := range calls {
		c.req.Credential = credential
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(detached, r.opts.CallTimeout)
			defer cancel()
			c.resp, c.err = c.sub.Executor.Execute(callCtx, c.req)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// collect distributes the answer of c over the root fields it selected.
func collect(c *call, tasks []executor.AsyncResolveTask, parts []fieldResult) {
	var data map[string]any
	err := c.err
	if err == nil && len(c.resp.Data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(c.resp.Data))
		dec.UseNumber()
		if derr := dec.Decode(&data); derr != nil {
			err = fmt.Errorf("%w: data: %v", errs.ErrMalformedResponseBody, derr)
		}
	}
	if err != nil {
		for _, i := range c.tasks {
			if parts[i].err == nil {
				parts[i].err = &ServiceError{Service: c.sub.Service, Err: err}
			}
		}
		return
	}

	byName := make(map[string]int, len(c.tasks))
	for _, i := range c.tasks {
		byName[tasks[i].ResponseName] = i
		parts[i].values = append(parts[i].values, data[tasks[i].ResponseName])
	}
	for _, re := range c.resp.Errors {
		ext := map[string]any{}
		for k, v := range re.Extensions {
			ext[k] = v
		}
		ext["serviceName"] = c.sub.Service

		if len(re.Path) > 0 {
			if key, ok := re.Path[0].(string); ok {
				if i, ok := byName[key]; ok {
					path := make(executor.Path, 0, len(re.Path))
					for _, p := range re.Path {
						path = append(path, p)
					}
					parts[i].errors = append(parts[i].errors, executor.GraphQLError{Message: re.Message, Path: path, Extensions: ext})
					continue
				}
			}
		}
		for _, i := range c.tasks {
			parts[i].errors = append(parts[i].errors, executor.GraphQLError{
				Message:    re.Message,
				Path:       executor.Path{tasks[i].ResponseName},
				Extensions: ext,
			})
		}
	}
}

// ResolveSync reads a field of a delegated result by response name.
func (r *Runtime) ResolveSync(_ context.Context, info executor.ResolveInfo, source any, _ map[string]any) (any, error) {
	obj, ok := source.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot resolve %s.%s from %T", info.ObjectType, info.Field, source)
	}
	return obj[info.ResponseName], nil
}

// ResolveType reads the __typename the planner asked services for.
func (r *Runtime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	if obj, ok := value.(map[string]any); ok {
		if name, ok := obj["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot determine concrete type of %s", abstractType)
}

// SerializeLeafValue passes backend values through; services already
// serialized them.
func (r *Runtime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}
