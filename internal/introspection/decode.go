package introspection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	schema "github.com/hanpama/stitchgate/internal/schema"
)

// Result is the data of an introspection response.
type Result struct {
	Schema *SchemaResult `json:"__schema"`
}

type SchemaResult struct {
	Description      *string        `json:"description"`
	QueryType        *NamedRef      `json:"queryType"`
	MutationType     *NamedRef      `json:"mutationType"`
	SubscriptionType *NamedRef      `json:"subscriptionType"`
	Types            []FullType     `json:"types"`
	Directives       []DirectiveDef `json:"directives"`
}

type NamedRef struct {
	Name string `json:"name"`
}

type FullType struct {
	Kind           string       `json:"kind"`
	Name           string       `json:"name"`
	Description    *string      `json:"description"`
	SpecifiedByURL *string      `json:"specifiedByURL"`
	Fields         []FieldDef   `json:"fields"`
	InputFields    []InputValue `json:"inputFields"`
	Interfaces     []TypeRef    `json:"interfaces"`
	EnumValues     []EnumValue  `json:"enumValues"`
	PossibleTypes  []TypeRef    `json:"possibleTypes"`
}

type FieldDef struct {
	Name              string       `json:"name"`
	Description       *string      `json:"description"`
	Args              []InputValue `json:"args"`
	Type              *TypeRef     `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason *string      `json:"deprecationReason"`
}

type InputValue struct {
	Name         string   `json:"name"`
	Description  *string  `json:"description"`
	Type         *TypeRef `json:"type"`
	DefaultValue *string  `json:"defaultValue"`
}

type EnumValue struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason"`
}

type DirectiveDef struct {
	Name         string       `json:"name"`
	Description  *string      `json:"description"`
	IsRepeatable bool         `json:"isRepeatable"`
	Locations    []string     `json:"locations"`
	Args         []InputValue `json:"args"`
}

type TypeRef struct {
	Kind   string   `json:"kind"`
	Name   *string  `json:"name"`
	OfType *TypeRef `json:"ofType"`
}

// Decode parses the "data" member of an introspection response.
func Decode(data []byte) (*schema.Schema, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("introspection: decode: %w", err)
	}
	return ToSchema(&res)
}

// ToSchema converts an introspection result into the schema model.
// Introspection types and builtin directives are dropped; builtin scalars
// are replaced with the shared definitions.
func ToSchema(res *Result) (*schema.Schema, error) {
	if res == nil || res.Schema == nil {
		return nil, errors.New("introspection: missing __schema")
	}
	in := res.Schema
	if in.QueryType == nil || in.QueryType.Name == "" {
		return nil, errors.New("introspection: schema has no query type")
	}
	out := schema.NewSchema(deref(in.Description))
	out.SetQueryType(in.QueryType.Name)
	if in.MutationType != nil {
		out.SetMutationType(in.MutationType.Name)
	}
	if in.SubscriptionType != nil {
		out.SetSubscriptionType(in.SubscriptionType.Name)
	}

	for _, ft := range in.Types {
		if ft.Name == "" {
			return nil, errors.New("introspection: type without name")
		}
		if strings.HasPrefix(ft.Name, "__") || schema.IsBuiltinScalar(ft.Name) {
			continue
		}
		t, err := convertType(ft)
		if err != nil {
			return nil, err
		}
		out.AddType(t)
	}
	for _, dd := range in.Directives {
		if schema.IsBuiltinDirective(dd.Name) {
			continue
		}
		d := schema.NewDirective(dd.Name, deref(dd.Description)).SetRepeatable(dd.IsRepeatable)
		d.Locations = append(d.Locations, dd.Locations...)
		for _, a := range dd.Args {
			iv, err := convertInputValue(a)
			if err != nil {
				return nil, fmt.Errorf("introspection: directive @%s: %w", dd.Name, err)
			}
			d.AddArgument(iv)
		}
		out.AddDirective(d)
	}
	out = schema.AddBuiltins(out)

	if out.GetQueryType() == nil {
		return nil, fmt.Errorf("introspection: query type %q not among types", out.QueryType)
	}
	return out, nil
}

func convertType(ft FullType) (*schema.Type, error) {
	var kind schema.TypeKind
	switch ft.Kind {
	case "SCALAR":
		kind = schema.TypeKindScalar
	case "OBJECT":
		kind = schema.TypeKindObject
	case "INTERFACE":
		kind = schema.TypeKindInterface
	case "UNION":
		kind = schema.TypeKindUnion
	case "ENUM":
		kind = schema.TypeKindEnum
	case "INPUT_OBJECT":
		kind = schema.TypeKindInputObject
	default:
		return nil, fmt.Errorf("introspection: type %s has unknown kind %q", ft.Name, ft.Kind)
	}
	t := schema.NewType(ft.Name, kind, deref(ft.Description))
	if ft.SpecifiedByURL != nil {
		t.SetSpecifiedByURL(*ft.SpecifiedByURL)
	}
	for _, fd := range ft.Fields {
		ref, err := convertTypeRef(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("introspection: %s.%s: %w", ft.Name, fd.Name, err)
		}
		f := schema.NewField(fd.Name, deref(fd.Description), ref)
		if fd.IsDeprecated {
			f.Deprecate(deref(fd.DeprecationReason))
		}
		for _, a := range fd.Args {
			iv, err := convertInputValue(a)
			if err != nil {
				return nil, fmt.Errorf("introspection: %s.%s: %w", ft.Name, fd.Name, err)
			}
			f.AddArgument(iv)
		}
		t.AddField(f)
	}
	for _, a := range ft.InputFields {
		iv, err := convertInputValue(a)
		if err != nil {
			return nil, fmt.Errorf("introspection: %s: %w", ft.Name, err)
		}
		t.AddInputField(iv)
	}
	for _, ref := range ft.Interfaces {
		t.AddInterface(deref(ref.Name))
	}
	for _, ref := range ft.PossibleTypes {
		t.AddPossibleType(deref(ref.Name))
	}
	for _, ev := range ft.EnumValues {
		v := schema.NewEnumValue(ev.Name, deref(ev.Description))
		if ev.IsDeprecated {
			v.Deprecate(deref(ev.DeprecationReason))
		}
		t.AddEnumValue(v)
	}
	return t, nil
}

func convertInputValue(in InputValue) (*schema.InputValue, error) {
	ref, err := convertTypeRef(in.Type)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", in.Name, err)
	}
	iv := schema.NewInputValue(in.Name, deref(in.Description), ref)
	if in.DefaultValue != nil {
		lit, err := schema.ParseLiteral(*in.DefaultValue)
		if err != nil {
			return nil, fmt.Errorf("argument %s: bad default value: %w", in.Name, err)
		}
		iv.DefaultLiteral = *in.DefaultValue
		iv.SetDefault(schema.ValueFromAST(lit))
	}
	return iv, nil
}

func convertTypeRef(ref *TypeRef) (*schema.TypeRef, error) {
	if ref == nil {
		return nil, errors.New("malformed type reference")
	}
	switch ref.Kind {
	case "NON_NULL":
		inner, err := convertTypeRef(ref.OfType)
		if err != nil {
			return nil, err
		}
		return schema.NonNullType(inner), nil
	case "LIST":
		inner, err := convertTypeRef(ref.OfType)
		if err != nil {
			return nil, err
		}
		return schema.ListType(inner), nil
	default:
		if ref.Name == nil || *ref.Name == "" {
			return nil, errors.New("malformed type reference")
		}
		return schema.NamedType(*ref.Name), nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
