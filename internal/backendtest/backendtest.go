// Package backendtest runs GraphQL services described by SDL, for tests and
// demos. Fields resolve from the parent map by name unless a resolver is
// registered for them.
package backendtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	executor "github.com/hanpama/stitchgate/internal/executor"
	httptp "github.com/hanpama/stitchgate/internal/httptp"
	introspection "github.com/hanpama/stitchgate/internal/introspection"
	language "github.com/hanpama/stitchgate/internal/language"
	reqid "github.com/hanpama/stitchgate/internal/reqid"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// Resolver computes a field value from its parent and arguments.
type Resolver = executor.Resolver

// Received records one operation a Service was asked to execute.
type Received struct {
	Query         string
	Variables     map[string]any
	OperationName string
	Authorization string
	RequestID     string
	Header        http.Header
}

// Service is an in-memory GraphQL backend.
type Service struct {
	Name   string
	Schema *schema.Schema

	fields *executor.FieldRuntime
	exec   *executor.Executor

	mu       sync.Mutex
	received []Received
}

// New builds a Service from SDL.
func New(name, sdl string) (*Service, error) {
	sch, err := schema.BuildFromSDL(sdl)
	if err != nil {
		return nil, fmt.Errorf("backendtest: service %q: %w", name, err)
	}
	s := &Service{Name: name, Schema: sch, fields: executor.NewFieldRuntime(nil)}
	wrapped, err := introspection.Wrap(s.fields, sch)
	if err != nil {
		return nil, fmt.Errorf("backendtest: service %q: %w", name, err)
	}
	s.exec = executor.NewExecutor(wrapped.Runtime, wrapped.Schema)
	return s, nil
}

// MustNew is New for tests.
func MustNew(t testing.TB, name, sdl string) *Service {
	t.Helper()
	s, err := New(name, sdl)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// Resolve registers r for coordinate "Type.field".
func (s *Service) Resolve(coordinate string, r Resolver) *Service {
	s.fields.Set(coordinate, r)
	return s
}

// Value makes coordinate always resolve to v.
func (s *Service) Value(coordinate string, v any) *Service {
	return s.Resolve(coordinate, executor.Value(v))
}

// Fail makes coordinate always fail with message.
func (s *Service) Fail(coordinate, message string) *Service {
	return s.Resolve(coordinate, executor.Fail(errors.New(message)))
}

// Received returns the operations executed so far, oldest first.
func (s *Service) Received() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.received...)
}

// Calls returns the received operations that are not schema introspection.
func (s *Service) Calls() []Received {
	var out []Received
	for _, r := range s.Received() {
		if !strings.Contains(r.Query, "__schema") {
			out = append(out, r)
		}
	}
	return out
}

// Reset forgets received operations.
func (s *Service) Reset() {
	s.mu.Lock()
	s.received = nil
	s.mu.Unlock()
}

func (s *Service) record(r Received) {
	s.mu.Lock()
	s.received = append(s.received, r)
	s.mu.Unlock()
}

// Run executes an operation against the service schema.
func (s *Service) Run(ctx context.Context, query string, variables map[string]any, operationName string) *executor.ExecutionResult {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: err.Error()}}}
	}
	return s.exec.ExecuteRequest(ctx, doc, operationName, variables, nil)
}

// Execute runs req in process, without HTTP.
func (s *Service) Execute(ctx context.Context, req *httptp.Request) (*httptp.Response, error) {
	id, _ := reqid.FromContext(ctx)
	s.record(Received{
		Query:         req.Query,
		Variables:     req.Variables,
		OperationName: req.OperationName,
		Authorization: req.Credential,
		RequestID:     id,
	})
	res := s.Run(ctx, req.Query, req.Variables, req.OperationName)
	data, err := json.Marshal(res.Data)
	if err != nil {
		return nil, err
	}
	out := &httptp.Response{Data: data}
	for _, e := range res.Errors {
		re := &httptp.RemoteError{Message: e.Message, Extensions: e.Extensions}
		for _, p := range e.Path {
			re.Path = append(re.Path, p)
		}
		out.Errors = append(out.Errors, re)
	}
	return out, nil
}

type wireRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// ServeHTTP answers GraphQL over HTTP POST on any path.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req wireRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.record(Received{
		Query:         req.Query,
		Variables:     req.Variables,
		OperationName: req.OperationName,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get(reqid.Header),
		Header:        r.Header.Clone(),
	})
	res := s.Run(r.Context(), req.Query, req.Variables, req.OperationName)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

// Start serves s on a loopback listener until the test ends and returns
// its host:port.
func (s *Service) Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}
