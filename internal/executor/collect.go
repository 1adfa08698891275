package executor

import (
	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// fieldGroup is every field node sharing one response name, in the order
// the name first appears.
type fieldGroup struct {
	name   string
	fields []*language.Field
}

// collect flattens set for an object of type t: fragments that apply to t
// are inlined and fields excluded by @skip or @include are dropped.
func (r *run) collect(t *schema.Type, set language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	seen := make(map[string]bool)

	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *language.Field:
				if !r.included(sel.Directives) {
					continue
				}
				name := sel.Alias
				if name == "" {
					name = sel.Name
				}
				if i, ok := index[name]; ok {
					groups[i].fields = append(groups[i].fields, sel)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{name: name, fields: []*language.Field{sel}})
			case *language.InlineFragment:
				if r.included(sel.Directives) && r.applies(t, sel.TypeCondition) {
					walk(sel.SelectionSet)
				}
			case *language.FragmentSpread:
				if seen[sel.Name] || !r.included(sel.Directives) {
					continue
				}
				seen[sel.Name] = true
				def := r.doc.Fragments.ForName(sel.Name)
				if def != nil && r.included(def.Directives) && r.applies(t, def.TypeCondition) {
					walk(def.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return groups
}

// applies reports whether a type condition matches object type t. A
// condition naming an interface or union matches each of its members.
func (r *run) applies(t *schema.Type, condition string) bool {
	if condition == "" || condition == t.Name {
		return true
	}
	return r.schema.IsPossibleType(r.schema.Types[condition], t.Name)
}

func (r *run) included(dirs language.DirectiveList) bool {
	if d := dirs.ForName("skip"); d != nil && r.directiveIf(d) {
		return false
	}
	if d := dirs.ForName("include"); d != nil && !r.directiveIf(d) {
		return false
	}
	return true
}

func (r *run) directiveIf(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	b, _ := literalValue(arg.Value, r.vars).(bool)
	return b
}

// subSelection joins the selection sets of fields merged under one
// response name.
func subSelection(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var set language.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	return set
}
