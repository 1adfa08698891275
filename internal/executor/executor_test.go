package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNonNullPropagatesToNearestNullable(t *testing.T) {
	sch := mustSchema(t, `
type Query { user: User }
type User { name: String! best: Friend }
type Friend { name: String! }
`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.user": Value(map[string]any{"name": "ann", "best": map[string]any{"name": nil}}),
	})

	got := execute(t, rt, sch, `{ user { name best { name } } }`, nil)

	want := &ExecutionResult{
		Data: map[string]any{"user": map[string]any{"name": "ann", "best": nil}},
		Errors: []GraphQLError{{
			Message: "Cannot return null for non-nullable field user.best.name",
			Path:    Path{"user", "best", "name"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedRootFieldKeepsSiblings(t *testing.T) {
	sch := mustSchema(t, `type Query { a: String! b: String }`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.a": Fail(errors.New("boom")),
		"Query.b": Value("B"),
	})

	got := execute(t, rt, sch, `{ a b }`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"a": nil, "b": "B"},
		Errors: []GraphQLError{{Message: "boom", Path: Path{"a"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestListCompletion(t *testing.T) {
	sch := mustSchema(t, `type Query { tags: [String!] names: [String]! typed: [String] }`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.tags":  Value([]any{"a", nil}),
		"Query.names": Value([]any{"x", nil}),
		"Query.typed": Value([]string{"p", "q"}),
	})

	got := execute(t, rt, sch, `{ tags names typed }`, nil)

	want := &ExecutionResult{
		Data: map[string]any{
			"tags":  nil,
			"names": []any{"x", nil},
			"typed": []any{"p", "q"},
		},
		Errors: []GraphQLError{{
			Message: "Cannot return null for non-nullable field tags[1]",
			Path:    Path{"tags", 1},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestListExpected(t *testing.T) {
	sch := mustSchema(t, `type Query { tags: [String] }`)
	rt := NewFieldRuntime(map[string]Resolver{"Query.tags": Value("solo")})

	got := execute(t, rt, sch, `{ tags }`, nil)

	require.Equal(t, map[string]any{"tags": nil}, got.Data)
	require.Len(t, got.Errors, 1)
	require.Equal(t, "expected a list, got string", got.Errors[0].Message)
}

func TestFragmentsAndDirectives(t *testing.T) {
	sch := mustSchema(t, `type Query { a: String b: String c: String }`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.a": Value("A"),
		"Query.b": Value("B"),
		"Query.c": Value("C"),
	})

	got := execute(t, rt, sch, `
query ($skip: Boolean!) {
  a @skip(if: $skip)
  ...F
  b @include(if: false)
  ... @include(if: true) { b }
}
fragment F on Query { c x: a }
`, map[string]any{"skip": true})

	want := &ExecutionResult{
		Data:   map[string]any{"c": "C", "x": "A", "b": "B"},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestMergedFieldsResolveOnce(t *testing.T) {
	sch := mustSchema(t, `
type Query { user: User }
type User { id: ID name: String }
`)
	calls := 0
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.user": func(context.Context, any, map[string]any) (any, error) {
			calls++
			return map[string]any{"id": "1", "name": "ann"}, nil
		},
	})

	got := execute(t, rt, sch, `{ user { id } user { name __typename } }`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"user": map[string]any{"id": "1", "name": "ann", "__typename": "User"}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, calls)
}

func TestArgumentsReachResolver(t *testing.T) {
	sch := mustSchema(t, `type Query { echo(n: Int = 1, s: String): String }`)
	var seen []map[string]any
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.echo": func(_ context.Context, _ any, args map[string]any) (any, error) {
			seen = append(seen, args)
			return "ok", nil
		},
	})

	got := execute(t, rt, sch, `query ($s: String) { a: echo(s: $s) b: echo(n: 7, s: "lit") }`, map[string]any{"s": "var"})

	require.Empty(t, got.Errors)
	want := []map[string]any{
		{"n": 1, "s": "var"},
		{"n": 7, "s": "lit"},
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidArgumentFailsField(t *testing.T) {
	sch := mustSchema(t, `type Query { n(v: Int!): Int m: Int }`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.n": Value(1),
		"Query.m": Value(2),
	})

	got := execute(t, rt, sch, `query ($x: Int) { n(v: $x) m }`, nil)

	want := &ExecutionResult{
		Data: map[string]any{"n": nil, "m": 2},
		Errors: []GraphQLError{{
			Message: `argument "v" of required type Int! was not provided`,
			Path:    Path{"n"},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestVariableErrorStopsExecution(t *testing.T) {
	sch := mustSchema(t, `type Query { m: Int }`)
	calls := 0
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.m": func(context.Context, any, map[string]any) (any, error) {
			calls++
			return 1, nil
		},
	})

	got := execute(t, rt, sch, `query ($x: Int!) { m }`, map[string]any{"x": "1"})

	require.Nil(t, got.Data)
	require.Len(t, got.Errors, 1)
	require.Contains(t, got.Errors[0].Message, "cannot coerce")
	require.Zero(t, calls)
}

func TestOperationSelection(t *testing.T) {
	sch := mustSchema(t, `type Query { a: String b: String }`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.a": Value("A"),
		"Query.b": Value("B"),
	})
	doc := mustParseQuery(t, `query A { a } query B { b } mutation M { a }`)
	exec := NewExecutor(rt, sch)

	tests := []struct {
		name     string
		op       string
		wantData any
		wantErr  string
	}{
		{name: "named", op: "B", wantData: map[string]any{"b": "B"}},
		{name: "ambiguous", op: "", wantErr: "operation name is required when the document holds 3 operations"},
		{name: "unknown", op: "C", wantErr: `unknown operation "C"`},
		{name: "unsupported root", op: "M", wantErr: "schema does not support mutation operations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exec.ExecuteRequest(context.Background(), doc, tt.op, nil, nil)
			if tt.wantErr != "" {
				require.Nil(t, got.Data)
				require.Equal(t, []GraphQLError{{Message: tt.wantErr}}, got.Errors)
				return
			}
			require.Empty(t, got.Errors)
			require.Equal(t, tt.wantData, got.Data)
		})
	}
}

func TestAbstractTypeMustResolve(t *testing.T) {
	sch := mustSchema(t, `
type Movie { title: String }
type Person { name: String }
union Result = Movie | Person
type Query { first: Result second: Result third: Result }
`)
	rt := NewFieldRuntime(map[string]Resolver{
		"Query.first":  Value(map[string]any{"__typename": "Person", "name": "Carl"}),
		"Query.second": Value(map[string]any{"title": "Up"}),
		"Query.third":  Value(map[string]any{"__typename": "Query"}),
	})

	got := execute(t, rt, sch, `{
  first { ... on Person { name } }
  second { ... on Movie { title } }
  third { __typename }
}`, nil)

	require.Equal(t, map[string]any{
		"first":  map[string]any{"name": "Carl"},
		"second": nil,
		"third":  nil,
	}, got.Data)
	require.Len(t, got.Errors, 2)
	require.Equal(t, Path{"second"}, got.Errors[0].Path)
	require.Equal(t, "cannot resolve the concrete type of Result from map[string]interface {}", got.Errors[0].Message)
	require.Equal(t, Path{"third"}, got.Errors[1].Path)
	require.Equal(t, `Result resolved to "Query", which is not one of its object types`, got.Errors[1].Message)
}

func TestUnknownFieldIsLocated(t *testing.T) {
	sch := mustSchema(t, `type Query { a: String }`)
	rt := NewFieldRuntime(map[string]Resolver{"Query.a": Value("A")})

	got := execute(t, rt, sch, `{ a nope }`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"a": "A"},
		Errors: []GraphQLError{{Message: `cannot query field "nope" on type "Query"`, Path: Path{"nope"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestPathString(t *testing.T) {
	require.Equal(t, "", Path(nil).String())
	require.Equal(t, "a.b[0].c", Path{"a", "b", 0, "c"}.String())
	require.Equal(t, "[2]", Path{2}.String())
}
