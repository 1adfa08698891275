package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustSchema builds sdl and marks the fields named by the "Type.field"
// coordinates in async as async.
func mustSchema(t *testing.T, sdl string, async ...string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	for _, c := range async {
		typ, field, _ := strings.Cut(c, ".")
		f := sch.Types[typ].Field(field)
		require.NotNil(t, f, c)
		f.SetAsync(true)
	}
	return sch
}

func execute(t *testing.T, rt Runtime, sch *schema.Schema, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, query), "", vars, nil)
}

// batchPaths lists the task paths of each batch.
func batchPaths(batches [][]AsyncResolveTask) [][]string {
	out := make([][]string, len(batches))
	for i, b := range batches {
		for _, task := range b {
			out[i] = append(out[i], task.Path.String())
		}
	}
	return out
}
