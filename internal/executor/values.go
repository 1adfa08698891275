package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// coerceVariableValues checks the provided variables against the variable
// definitions of operation and returns them coerced to their declared types.
// Missing variables take their default; missing required ones are an error.
func coerceVariableValues(sch *schema.Schema, operation *language.OperationDefinition, provided map[string]any) (map[string]any, error) {
	c := inputCoercer{schema: sch}
	out := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name := def.Variable
		typ := schema.TypeRefFromAST(def.Type)
		raw, ok := provided[name]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				raw = schema.ValueFromAST(def.DefaultValue)
			case typ.IsNonNull():
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, typ)
			default:
				continue
			}
		}
		v, err := c.coerce(raw, typ)
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s got an invalid value: %w", name, typ, err)
		}
		out[name] = v
	}
	return out, nil
}

// coerceArguments resolves the argument literals of a field, substituting
// variables, and coerces them to the argument types. Arguments that are
// absent, or bound to an absent variable, take their default.
func coerceArguments(sch *schema.Schema, def *schema.Field, args language.ArgumentList, vars map[string]any) (map[string]any, error) {
	c := inputCoercer{schema: sch}
	out := make(map[string]any, len(def.Arguments))
	for _, in := range def.Arguments {
		var (
			raw     any
			present bool
		)
		if arg := args.ForName(in.Name); arg != nil {
			if arg.Value.Kind == language.Variable {
				raw, present = vars[arg.Value.Raw]
			} else {
				raw, present = literalValue(arg.Value, vars), true
			}
		}
		if !present {
			dv, ok, err := defaultValue(in)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", in.Name, err)
			}
			if !ok {
				if in.Type.IsNonNull() {
					return nil, fmt.Errorf("argument %q of required type %s was not provided", in.Name, in.Type)
				}
				continue
			}
			raw = dv
		}
		v, err := c.coerce(raw, in.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q of type %s got an invalid value: %w", in.Name, in.Type, err)
		}
		out[in.Name] = v
	}
	return out, nil
}

// literalValue converts a value literal to Go. Variables at any depth are
// replaced by their value; unknown variables read as null.
func literalValue(v *language.Value, vars map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return vars[v.Raw]
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = literalValue(c.Value, vars)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = literalValue(c.Value, vars)
		}
		return out
	default:
		return schema.ValueFromAST(v)
	}
}

// defaultValue returns the declared default of in as a Go value.
func defaultValue(in *schema.InputValue) (any, bool, error) {
	if !in.HasDefault() {
		return nil, false, nil
	}
	if in.DefaultValue != nil || in.DefaultLiteral == "" {
		return in.DefaultValue, true, nil
	}
	lit, err := schema.ParseLiteral(in.DefaultLiteral)
	if err != nil {
		return nil, false, err
	}
	return schema.ValueFromAST(lit), true, nil
}

// inputCoercer applies the input coercion rules of the type system to
// values decoded from JSON variables or from literals.
type inputCoercer struct {
	schema *schema.Schema
}

func (c inputCoercer) coerce(value any, typ *schema.TypeRef) (any, error) {
	if typ.IsNonNull() {
		if value == nil {
			return nil, fmt.Errorf("null given for non-null type %s", typ)
		}
		return c.coerce(value, typ.OfType)
	}
	if value == nil {
		return nil, nil
	}
	if typ.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			// A single value stands for a list of one.
			v, err := c.coerce(value, typ.OfType)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := c.coerce(item, typ.OfType)
			if err != nil {
				return nil, fmt.Errorf("at index %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return c.coerceNamed(value, typ.Named)
}

func (c inputCoercer) coerceNamed(value any, name string) (any, error) {
	switch name {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if s, ok := value.(string); ok {
			return s, nil
		}
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case "ID":
		return coerceID(value)
	default:
		t := c.schema.Types[name]
		if t == nil {
			return value, nil
		}
		switch t.Kind {
		case schema.TypeKindEnum:
			return coerceEnum(t, value)
		case schema.TypeKindInputObject:
			return c.coerceInputObject(t, value)
		case schema.TypeKindScalar:
			return value, nil
		default:
			return nil, fmt.Errorf("%s is not an input type", name)
		}
	}
	return nil, cannotCoerce(value, name)
}

func (c inputCoercer) coerceInputObject(t *schema.Type, value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, cannotCoerce(value, t.Name)
	}
	declared := make(map[string]bool, len(t.InputFields))
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		declared[f.Name] = true
		raw, ok := m[f.Name]
		if !ok {
			dv, has, err := defaultValue(f)
			if err != nil {
				return nil, fmt.Errorf("field '%s' of %s: %w", f.Name, t.Name, err)
			}
			if !has {
				if f.Type.IsNonNull() {
					return nil, fmt.Errorf("required field '%s' of type %s was not provided", f.Name, t.Name)
				}
				continue
			}
			raw = dv
		}
		v, err := c.coerce(raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of %s: %w", f.Name, t.Name, err)
		}
		out[f.Name] = v
	}
	for k := range m {
		if !declared[k] {
			return nil, fmt.Errorf("field '%s' is not defined by %s", k, t.Name)
		}
	}
	if t.OneOf {
		set := 0
		for _, v := range out {
			if v != nil {
				set++
			}
		}
		if set != 1 {
			return nil, fmt.Errorf("exactly one field of %s must be set, got %d", t.Name, set)
		}
	}
	return out, nil
}

func coerceEnum(t *schema.Type, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, cannotCoerce(value, t.Name)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%q is not a value of enum %s", s, t.Name)
}

// coerceInt accepts integral numbers within the 32-bit range. Strings are
// rejected even when they hold digits.
func coerceInt(value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case int:
		n = float64(v)
	case int32:
		return int(v), nil
	case int64:
		n = float64(v)
	case float64:
		n = v
	case float32:
		n = float64(v)
	case json.Number:
		i, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil, cannotCoerce(value, "Int")
		}
		n = float64(i)
	default:
		return nil, cannotCoerce(value, "Int")
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return nil, cannotCoerce(value, "Int")
	}
	return int(n), nil
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	}
	return nil, cannotCoerce(value, "Float")
}

// coerceID accepts strings and integers; integers become their decimal
// string.
func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		if _, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return string(v), nil
		}
	default:
		if n, err := coerceInt(value); err == nil {
			return strconv.Itoa(n.(int)), nil
		}
	}
	return nil, cannotCoerce(value, "ID")
}

func cannotCoerce(value any, typeName string) error {
	return fmt.Errorf("cannot coerce %#v (%T) to %s", value, value, typeName)
}
