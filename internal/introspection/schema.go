package introspection

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// metaSchema is what introspection adds to a schema: the "__" types and the
// __schema and __type fields of the query root.
type metaSchema struct {
	types  map[string]*schema.Type
	fields []*schema.Field
}

// meta is taken from the prelude gqlparser loads with every schema, so the
// executed meta types always agree with the ones queries are validated
// against.
var meta = sync.OnceValues(func() (*metaSchema, error) {
	as, err := language.LoadSchema("introspection.graphql", "type Query { ping: Boolean }")
	if err != nil {
		return nil, err
	}
	m := &metaSchema{types: make(map[string]*schema.Type)}
	for name, def := range as.Types {
		if strings.HasPrefix(name, "__") {
			m.types[name] = schema.TypeFromAST(as, def)
		}
	}
	for _, fd := range as.Query.Fields {
		if fd.Name == "__schema" || fd.Name == "__type" {
			m.fields = append(m.fields, schema.FieldFromAST(fd))
		}
	}
	if len(m.fields) != 2 {
		return nil, fmt.Errorf("prelude declares %d meta fields on the query root", len(m.fields))
	}
	return m, nil
})

// extend returns a copy of sch holding the meta types, whose query root also
// has the __schema and __type fields. Only the type map and the query root
// are copied; the other types are shared with sch. The meta fields are sync
// even where every other root field is delegated.
func extend(sch *schema.Schema) (*schema.Schema, error) {
	m, err := meta()
	if err != nil {
		return nil, fmt.Errorf("introspection: load meta types: %w", err)
	}
	root := sch.GetQueryType()
	if root == nil {
		return nil, fmt.Errorf("introspection: schema has no query type %q", sch.QueryType)
	}

	out := *sch
	out.Types = make(map[string]*schema.Type, len(sch.Types)+len(m.types))
	maps.Copy(out.Types, sch.Types)
	for name, t := range m.types {
		if _, taken := out.Types[name]; taken {
			return nil, fmt.Errorf("introspection: type name %s is reserved", name)
		}
		out.Types[name] = t
	}
	for _, name := range []string{sch.QueryType, sch.MutationType, sch.SubscriptionType} {
		t := sch.Types[name]
		if t == nil {
			continue
		}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") {
				return nil, fmt.Errorf("introspection: root field %s.%s uses a reserved name", t.Name, f.Name)
			}
		}
	}

	q := *root
	q.Fields = append(slices.Clip(root.Fields), m.fields...)
	out.Types[q.Name] = &q
	return &out, nil
}
