package introspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/stitchgate/internal/executor"
	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

func TestExtendCopiesOnlyTheQueryRoot(t *testing.T) {
	sch := buildSchema(t, `
type Query { hello: String }
type Mutation { touch: Boolean }
`)
	ext, err := extend(sch)
	require.NoError(t, err)

	require.Len(t, sch.GetQueryType().Fields, 1)
	require.Nil(t, sch.Types["__Schema"])

	q := ext.GetQueryType()
	require.NotSame(t, sch.GetQueryType(), q)
	require.Equal(t, []string{"hello", "__schema", "__type"}, fieldNames(q))
	require.Same(t, sch.GetMutationType(), ext.GetMutationType())

	typ := q.Field("__type")
	require.Equal(t, "__Type", typ.Type.String())
	require.Equal(t, "String!", typ.Argument("name").Type.String())
	require.Equal(t, "__Schema!", q.Field("__schema").Type.String())

	for _, name := range []string{"__Schema", "__Type", "__Field", "__InputValue", "__EnumValue", "__Directive", "__TypeKind", "__DirectiveLocation"} {
		require.NotNil(t, ext.Types[name], name)
	}
	require.NotNil(t, ext.Types["__Type"].Field("isOneOf"))
	require.NotNil(t, ext.Types["__Type"].Field("specifiedByURL"))
}

func TestExtendRejects(t *testing.T) {
	tests := []struct {
		name    string
		sch     *schema.Schema
		wantErr string
	}{
		{
			name:    "no query type",
			sch:     schema.NewSchema("").AddType(schema.NewType("Mutation", schema.TypeKindObject, "")),
			wantErr: `schema has no query type ""`,
		},
		{
			name: "reserved type name",
			sch: schema.NewSchema("").SetQueryType("Query").
				AddType(schema.NewType("Query", schema.TypeKindObject, "")).
				AddType(schema.NewType("__Type", schema.TypeKindObject, "")),
			wantErr: "type name __Type is reserved",
		},
		{
			name: "reserved root field",
			sch: schema.NewSchema("").SetQueryType("Query").
				AddType(schema.NewType("Query", schema.TypeKindObject, "").
					AddField(schema.NewField("__schema", "", schema.NamedType("String")))),
			wantErr: "root field Query.__schema uses a reserved name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Wrap(noopRuntime{}, tt.sch)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// Delegated root fields are async; the meta fields next to them must not
// reach the batch.
func TestMetaFieldsStayOutOfBatches(t *testing.T) {
	sch := buildSchema(t, `type Query { remote: String }`)
	sch.GetQueryType().Field("remote").SetAsync(true)
	base := executor.NewFieldRuntime(map[string]executor.Resolver{
		"Query.remote": executor.Value("r"),
	})
	w, err := Wrap(base, sch)
	require.NoError(t, err)

	doc, err := language.ParseQuery(`{ __schema { queryType { name } } __type(name: "Query") { name } remote }`)
	require.NoError(t, err)
	res := executor.NewExecutor(w.Runtime, w.Schema).ExecuteRequest(context.Background(), doc, "", nil, nil)

	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{
		"__schema": map[string]any{"queryType": map[string]any{"name": "Query"}},
		"__type":   map[string]any{"name": "Query"},
		"remote":   "r",
	}, res.Data)

	batches := base.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	require.Equal(t, "remote", batches[0][0].Field)
}

func fieldNames(t *schema.Type) []string {
	var out []string
	for _, f := range t.Fields {
		out = append(out, f.Name)
	}
	return out
}
