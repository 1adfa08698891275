// Package stitch composes the schemas of several GraphQL services into one
// schema and records which services can resolve each field.
package stitch

import (
	"errors"
	"fmt"
	"sort"

	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// Root type names of the stitched schema. Services may name their roots
// differently; their root fields are merged into these types.
const (
	QueryType    = "Query"
	MutationType = "Mutation"
)

// Unified is the stitched schema. AST is the same schema loaded by gqlparser
// and is used to validate client operations.
type Unified struct {
	Schema     *schema.Schema
	AST        *language.Schema
	SDL        string
	Plan       *Plan
	Subschemas []*Subschema
}

// Stitch merges subs in order. Root fields declared identically by several
// services are shared and owned by all of them, first one preferred.
// Incompatible declarations fail with a *ConflictError.
func Stitch(subs []*Subschema) (*Unified, error) {
	if len(subs) == 0 {
		return nil, errors.New("stitch: no subschemas")
	}
	m := &merger{
		out:         schema.NewSchema(""),
		plan:        newPlan(),
		typeOrigin:  make(map[string]string),
		fieldOrigin: make(map[coordinate]string),
	}
	for _, sub := range subs {
		if err := m.add(sub); err != nil {
			return nil, err
		}
	}

	if m.out.Types[QueryType] == nil {
		return nil, errors.New("stitch: no service declares a query type")
	}
	m.out.SetQueryType(QueryType)
	if m.out.Types[MutationType] != nil {
		m.out.SetMutationType(MutationType)
	}
	for _, name := range []string{m.out.QueryType, m.out.MutationType} {
		if root := m.out.Types[name]; root != nil {
			for _, f := range root.Fields {
				f.SetAsync(true)
			}
		}
	}
	m.plan.schema = m.out

	sdl := schema.Render(m.out)
	as, err := language.LoadSchema("stitched.graphql", sdl)
	if err != nil {
		return nil, fmt.Errorf("stitch: load stitched schema: %w", err)
	}
	return &Unified{
		Schema:     m.out,
		AST:        as,
		SDL:        sdl,
		Plan:       m.plan,
		Subschemas: append([]*Subschema(nil), subs...),
	}, nil
}

type merger struct {
	out         *schema.Schema
	plan        *Plan
	typeOrigin  map[string]string
	fieldOrigin map[coordinate]string
}

// stitchedName maps a type of sub to its name in the stitched schema. It
// returns "" for types that are left out.
func stitchedName(sub *Subschema, name string) string {
	switch name {
	case sub.Schema.QueryType:
		return QueryType
	case sub.Schema.MutationType:
		return MutationType
	case sub.Schema.SubscriptionType:
		return ""
	}
	return name
}

func (m *merger) add(sub *Subschema) error {
	names := make([]string, 0, len(sub.Schema.Types))
	for name := range sub.Schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		target := stitchedName(sub, name)
		if target == "" {
			continue
		}
		if err := m.addType(sub, target, sub.Schema.Types[name]); err != nil {
			return err
		}
	}

	dirNames := make([]string, 0, len(sub.Schema.Directives))
	for name := range sub.Schema.Directives {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)
	for _, name := range dirNames {
		if _, ok := m.out.Directives[name]; !ok {
			m.out.AddDirective(sub.Schema.Directives[name])
		}
	}
	return nil
}

func (m *merger) addType(sub *Subschema, name string, t *schema.Type) error {
	m.plan.addType(name, sub)
	existing := m.out.Types[name]
	if existing == nil {
		m.typeOrigin[name] = sub.Service
		cp := copyType(t, name)
		m.out.AddType(cp)
		for _, f := range cp.Fields {
			m.fieldOrigin[coordinate{name, f.Name}] = sub.Service
			m.plan.addField(name, f.Name, sub)
		}
		for _, in := range cp.InputFields {
			m.fieldOrigin[coordinate{name, in.Name}] = sub.Service
		}
		return nil
	}
	if existing.Kind != t.Kind {
		return &ConflictError{
			Type:     name,
			Services: []string{m.typeOrigin[name], sub.Service},
			Reason:   fmt.Sprintf("declared as %s and %s", existing.Kind, t.Kind),
		}
	}

	root := name == QueryType || name == MutationType
	switch t.Kind {
	case schema.TypeKindObject, schema.TypeKindInterface:
		for _, f := range t.Fields {
			if err := m.mergeField(sub, existing, f, root); err != nil {
				return err
			}
		}
		existing.Interfaces = union(existing.Interfaces, t.Interfaces)
		existing.PossibleTypes = union(existing.PossibleTypes, t.PossibleTypes)
	case schema.TypeKindUnion:
		existing.PossibleTypes = union(existing.PossibleTypes, t.PossibleTypes)
	case schema.TypeKindEnum:
		for _, v := range t.EnumValues {
			if !hasEnumValue(existing, v.Name) {
				cp := *v
				existing.AddEnumValue(&cp)
			}
		}
	case schema.TypeKindInputObject:
		for _, in := range t.InputFields {
			if err := m.mergeInputField(sub, existing, in); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *merger) mergeField(sub *Subschema, into *schema.Type, f *schema.Field, root bool) error {
	key := coordinate{into.Name, f.Name}
	existing := into.Field(f.Name)
	if existing == nil {
		cp := *f
		into.AddField(&cp)
		m.fieldOrigin[key] = sub.Service
		m.plan.addField(into.Name, f.Name, sub)
		return nil
	}
	if !existing.Type.Equal(f.Type) {
		return &ConflictError{
			Type:     into.Name,
			Field:    f.Name,
			Services: []string{m.fieldOrigin[key], sub.Service},
			Reason:   fmt.Sprintf("returns %s and %s", existing.Type, f.Type),
		}
	}
	if root {
		if reason := compareArguments(existing.Arguments, f.Arguments); reason != "" {
			return &ConflictError{
				Type:     into.Name,
				Field:    f.Name,
				Services: []string{m.fieldOrigin[key], sub.Service},
				Reason:   reason,
			}
		}
	}
	m.plan.addField(into.Name, f.Name, sub)
	return nil
}

func (m *merger) mergeInputField(sub *Subschema, into *schema.Type, in *schema.InputValue) error {
	key := coordinate{into.Name, in.Name}
	var existing *schema.InputValue
	for _, e := range into.InputFields {
		if e.Name == in.Name {
			existing = e
			break
		}
	}
	if existing == nil {
		cp := *in
		into.AddInputField(&cp)
		m.fieldOrigin[key] = sub.Service
		return nil
	}
	if !existing.Type.Equal(in.Type) {
		return &ConflictError{
			Type:     into.Name,
			Field:    in.Name,
			Services: []string{m.fieldOrigin[key], sub.Service},
			Reason:   fmt.Sprintf("input field typed %s and %s", existing.Type, in.Type),
		}
	}
	return nil
}

// compareArguments returns why two argument lists differ, or "".
func compareArguments(a, b []*schema.InputValue) string {
	if len(a) != len(b) {
		return fmt.Sprintf("takes %d and %d arguments", len(a), len(b))
	}
	byName := make(map[string]*schema.InputValue, len(a))
	for _, arg := range a {
		byName[arg.Name] = arg
	}
	for _, arg := range b {
		other, ok := byName[arg.Name]
		if !ok {
			return fmt.Sprintf("argument %q is not declared by both", arg.Name)
		}
		if !other.Type.Equal(arg.Type) {
			return fmt.Sprintf("argument %q typed %s and %s", arg.Name, other.Type, arg.Type)
		}
		if other.HasDefault() != arg.HasDefault() || (arg.HasDefault() && other.DefaultString() != arg.DefaultString()) {
			return fmt.Sprintf("argument %q has different defaults", arg.Name)
		}
	}
	return ""
}

func copyType(t *schema.Type, name string) *schema.Type {
	cp := *t
	cp.Name = name
	cp.Fields = nil
	for _, f := range t.Fields {
		fc := *f
		cp.Fields = append(cp.Fields, &fc)
	}
	cp.InputFields = nil
	for _, in := range t.InputFields {
		ic := *in
		cp.InputFields = append(cp.InputFields, &ic)
	}
	cp.EnumValues = nil
	for _, v := range t.EnumValues {
		vc := *v
		cp.EnumValues = append(cp.EnumValues, &vc)
	}
	cp.Interfaces = append([]string(nil), t.Interfaces...)
	cp.PossibleTypes = append([]string(nil), t.PossibleTypes...)
	return &cp
}

func union(into, more []string) []string {
	for _, s := range more {
		found := false
		for _, e := range into {
			if e == s {
				found = true
				break
			}
		}
		if !found {
			into = append(into, s)
		}
	}
	return into
}

func hasEnumValue(t *schema.Type, name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}
