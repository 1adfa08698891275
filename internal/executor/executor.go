package executor

import (
	"context"
	"fmt"
	"reflect"

	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// run is the state of one operation.
type run struct {
	ctx     context.Context
	runtime Runtime
	schema  *schema.Schema
	doc     *language.QueryDocument
	op      *language.OperationDefinition
	vars    map[string]any

	errors  []GraphQLError
	pending []*pendingField
}

// pendingField is an async field waiting for the next batch.
type pendingField struct {
	task   AsyncResolveTask
	typ    *schema.TypeRef
	fields []*language.Field
	slot   *slot
}

// ExecuteRequest runs one operation of document. operationName may be empty
// when the document holds a single operation. Root fields of a query are
// resolved together; root fields of a mutation one after another, each with
// its whole subtree, in document order.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	op, err := selectOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	root, err := e.rootType(op.Operation)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	vars, err := coerceVariableValues(e.schema, op, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	r := &run{
		ctx:     ctx,
		runtime: e.runtime,
		schema:  e.schema,
		doc:     document,
		op:      op,
		vars:    vars,
		errors:  []GraphQLError{},
	}
	data := make(map[string]any)
	for _, g := range r.collect(root, op.SelectionSet) {
		r.executeField(root, initialValue, g, data, nil, Path{g.name})
		if op.Operation == language.Mutation {
			r.drain()
		}
	}
	r.drain()
	return &ExecutionResult{Data: data, Errors: r.errors}
}

func (e *Executor) rootType(op language.Operation) (*schema.Type, error) {
	var t *schema.Type
	switch op {
	case language.Query:
		t = e.schema.GetQueryType()
	case language.Mutation:
		t = e.schema.GetMutationType()
	case language.Subscription:
		t = e.schema.GetSubscriptionType()
	default:
		return nil, fmt.Errorf("unsupported operation type %q", op)
	}
	if t == nil {
		return nil, fmt.Errorf("schema does not support %s operations", op)
	}
	return t, nil
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" {
		if len(doc.Operations) != 1 {
			return nil, fmt.Errorf("operation name is required when the document holds %d operations", len(doc.Operations))
		}
		return doc.Operations[0], nil
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation %q", name)
}

// executeObject resolves groups on source, an object of type t, into obj.
// s holds obj and is nil at the root.
func (r *run) executeObject(t *schema.Type, source any, groups []fieldGroup, obj map[string]any, s *slot) {
	for _, g := range groups {
		if s.detached() {
			return
		}
		r.executeField(t, source, g, obj, s, s.path.with(g.name))
	}
}

func (r *run) executeField(t *schema.Type, source any, g fieldGroup, obj map[string]any, parent *slot, path Path) {
	node := g.fields[0]
	if node.Name == "__typename" {
		obj[g.name] = t.Name
		return
	}
	def := t.Field(node.Name)
	if def == nil {
		r.addError(path, fmt.Errorf("cannot query field %q on type %q", node.Name, t.Name))
		return
	}
	s := objectSlot(obj, g.name, path, def.Type.IsNonNull(), parent)

	args, err := coerceArguments(r.schema, def, node.Arguments, r.vars)
	if err != nil {
		r.fail(s, err)
		return
	}
	info := ResolveInfo{
		ObjectType:   t.Name,
		Field:        def.Name,
		ResponseName: g.name,
		Path:         path,
		Fields:       g.fields,
		Operation:    r.op,
		Document:     r.doc,
		Variables:    r.vars,
	}
	if def.Async {
		r.pending = append(r.pending, &pendingField{
			task:   AsyncResolveTask{ResolveInfo: info, Source: source, Args: args},
			typ:    def.Type,
			fields: g.fields,
			slot:   s,
		})
		return
	}
	v, err := r.runtime.ResolveSync(r.ctx, info, source, args)
	if err != nil {
		r.fail(s, err)
		return
	}
	r.complete(s, def.Type, g.fields, v)
}

// drain resolves pending async fields one depth at a time: every field
// queued while completing a batch goes into the next one.
func (r *run) drain() {
	for len(r.pending) > 0 {
		var batch []*pendingField
		for _, p := range r.pending {
			if !p.slot.detached() {
				batch = append(batch, p)
			}
		}
		r.pending = nil
		if len(batch) == 0 {
			return
		}
		tasks := make([]AsyncResolveTask, len(batch))
		for i, p := range batch {
			tasks[i] = p.task
		}
		results := r.runtime.BatchResolveAsync(r.ctx, tasks)
		for i, p := range batch {
			if p.slot.detached() {
				continue
			}
			if i >= len(results) {
				r.fail(p.slot, fmt.Errorf("runtime returned %d results for %d fields", len(results), len(batch)))
				continue
			}
			res := results[i]
			r.errors = append(r.errors, res.Errors...)
			if res.Error != nil {
				r.fail(p.slot, res.Error)
				continue
			}
			r.complete(p.slot, p.typ, p.fields, res.Value)
		}
	}
}

// complete writes value, the resolved value of a field of type typ, into s.
func (r *run) complete(s *slot, typ *schema.TypeRef, fields []*language.Field, value any) {
	if typ.IsNonNull() {
		if isNullish(value) {
			if !r.hasError(s.path) {
				r.errors = append(r.errors, GraphQLError{Message: "Cannot return null for non-nullable field " + s.path.String(), Path: s.path})
			}
			s.null()
			return
		}
		typ = typ.OfType
	}
	if isNullish(value) {
		s.set(nil)
		return
	}
	if typ.Kind == schema.TypeRefKindList {
		r.completeList(s, typ.OfType, fields, value)
		return
	}

	t := r.schema.Types[typ.Named]
	if t == nil {
		r.fail(s, fmt.Errorf("unknown type %s", typ.Named))
		return
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := r.runtime.SerializeLeafValue(r.ctx, t.Name, value)
		if err != nil {
			r.fail(s, err)
			return
		}
		s.set(out)
	case schema.TypeKindObject:
		r.completeObject(s, t, fields, value)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		name, err := r.runtime.ResolveType(r.ctx, t.Name, value)
		if err != nil {
			r.fail(s, err)
			return
		}
		concrete := r.schema.Types[name]
		if concrete == nil || concrete.Kind != schema.TypeKindObject || !r.schema.IsPossibleType(t, name) {
			r.fail(s, fmt.Errorf("%s resolved to %q, which is not one of its object types", t.Name, name))
			return
		}
		r.completeObject(s, concrete, fields, value)
	default:
		r.fail(s, fmt.Errorf("cannot complete a value of kind %s", t.Kind))
	}
}

func (r *run) completeList(s *slot, inner *schema.TypeRef, fields []*language.Field, value any) {
	items, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			r.fail(s, fmt.Errorf("expected a list, got %T", value))
			return
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}
	out := make([]any, len(items))
	s.set(out)
	for i, item := range items {
		if s.detached() {
			return
		}
		r.complete(listSlot(out, i, inner.IsNonNull(), s), inner, fields, item)
	}
}

func (r *run) completeObject(s *slot, t *schema.Type, fields []*language.Field, value any) {
	obj := make(map[string]any)
	s.set(obj)
	r.executeObject(t, value, r.collect(t, subSelection(fields)), obj, s)
}

// fail records err at s and nulls it.
func (r *run) fail(s *slot, err error) {
	r.addError(s.path, err)
	s.null()
}

func (r *run) addError(path Path, err error) {
	r.errors = append(r.errors, GraphQLError{Message: err.Error(), Path: path, Extensions: errorExtensions(err)})
}

func (r *run) hasError(path Path) bool {
	key := path.String()
	for _, e := range r.errors {
		if e.Path.String() == key {
			return true
		}
	}
	return false
}

// isNullish reports nil and typed nil values.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
