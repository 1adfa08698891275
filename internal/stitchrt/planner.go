package stitchrt

import (
	executor "github.com/hanpama/stitchgate/internal/executor"
	language "github.com/hanpama/stitchgate/internal/language"
	stitch "github.com/hanpama/stitchgate/internal/stitch"
)

// target is what one service selects for one root field.
type target struct {
	sub       *stitch.Subschema
	selection language.SelectionSet
}

type planner struct {
	unified *stitch.Unified
	doc     *language.QueryDocument
}

// planField picks the services resolving a root field. If one owner can
// resolve the whole selection it gets all of it; otherwise the selection is
// split field by field, each part going to the first owner able to resolve
// it. A service whose part would be empty is left out.
func (p *planner) planField(task executor.AsyncResolveTask) ([]target, error) {
	owners := p.unified.Plan.FieldOwners(task.ObjectType, task.Field)
	if len(owners) == 0 {
		return nil, &PlanError{Type: task.ObjectType, Field: task.Field}
	}
	typeName := p.fieldType(task.ObjectType, task.Field)

	var selection language.SelectionSet
	for _, f := range task.Fields {
		selection = append(selection, p.expand(f.SelectionSet, map[string]bool{})...)
	}
	if len(selection) == 0 {
		return []target{{sub: owners[0]}}, nil
	}

	for _, o := range owners {
		if p.covers(o, typeName, selection) {
			return []target{{sub: o, selection: p.inject(typeName, selection, false)}}, nil
		}
	}

	parts, err := p.split(typeName, selection, owners)
	if err != nil {
		return nil, err
	}
	var targets []target
	for _, o := range owners {
		if part := parts[o]; len(part) > 0 {
			targets = append(targets, target{sub: o, selection: p.inject(typeName, part, true)})
		}
	}
	return targets, nil
}

// expand replaces fragment spreads by equivalent inline fragments so every
// forwarded selection is self-contained.
func (p *planner) expand(set language.SelectionSet, visiting map[string]bool) language.SelectionSet {
	out := make(language.SelectionSet, 0, len(set))
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			cp := *s
			cp.SelectionSet = p.expand(s.SelectionSet, visiting)
			out = append(out, &cp)
		case *language.InlineFragment:
			cp := *s
			cp.SelectionSet = p.expand(s.SelectionSet, visiting)
			out = append(out, &cp)
		case *language.FragmentSpread:
			def := p.doc.Fragments.ForName(s.Name)
			if def == nil || visiting[s.Name] {
				continue
			}
			visiting[s.Name] = true
			out = append(out, &language.InlineFragment{
				TypeCondition: def.TypeCondition,
				Directives:    append(append(language.DirectiveList{}, s.Directives...), def.Directives...),
				SelectionSet:  p.expand(def.SelectionSet, visiting),
			})
			delete(visiting, s.Name)
		}
	}
	return out
}

// covers reports whether sub resolves every field of set on typeName.
func (p *planner) covers(sub *stitch.Subschema, typeName string, set language.SelectionSet) bool {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if s.Name == "__typename" {
				continue
			}
			if !p.unified.Plan.Resolves(sub, typeName, s.Name) {
				return false
			}
			if len(s.SelectionSet) > 0 && !p.covers(sub, p.fieldType(typeName, s.Name), s.SelectionSet) {
				return false
			}
		case *language.InlineFragment:
			cond := condition(s, typeName)
			if !p.unified.Plan.Declares(sub, cond) || !p.covers(sub, cond, s.SelectionSet) {
				return false
			}
		}
	}
	return true
}

func (p *planner) split(typeName string, set language.SelectionSet, owners []*stitch.Subschema) (map[*stitch.Subschema]language.SelectionSet, error) {
	out := make(map[*stitch.Subschema]language.SelectionSet)
next:
	for _, sel := range set {
		for _, o := range owners {
			if p.covers(o, typeName, language.SelectionSet{sel}) {
				out[o] = append(out[o], sel)
				continue next
			}
		}

		switch s := sel.(type) {
		case *language.Field:
			var able []*stitch.Subschema
			for _, o := range owners {
				if p.unified.Plan.Resolves(o, typeName, s.Name) {
					able = append(able, o)
				}
			}
			if len(able) == 0 || len(s.SelectionSet) == 0 {
				return nil, &PlanError{Type: typeName, Field: s.Name}
			}
			parts, err := p.split(p.fieldType(typeName, s.Name), s.SelectionSet, able)
			if err != nil {
				return nil, err
			}
			for _, o := range able {
				if part, ok := parts[o]; ok {
					cp := *s
					cp.SelectionSet = part
					out[o] = append(out[o], &cp)
				}
			}
		case *language.InlineFragment:
			cond := condition(s, typeName)
			var able []*stitch.Subschema
			for _, o := range owners {
				if p.unified.Plan.Declares(o, cond) {
					able = append(able, o)
				}
			}
			if len(able) == 0 {
				return nil, &PlanError{Type: cond}
			}
			parts, err := p.split(cond, s.SelectionSet, able)
			if err != nil {
				return nil, err
			}
			for _, o := range able {
				if part, ok := parts[o]; ok {
					cp := *s
					cp.SelectionSet = part
					out[o] = append(out[o], &cp)
				}
			}
		}
	}
	return out, nil
}

// inject adds __typename to selections on abstract types, which the
// gateway needs to complete them, and to the top level when force is set.
func (p *planner) inject(typeName string, set language.SelectionSet, force bool) language.SelectionSet {
	out := make(language.SelectionSet, 0, len(set)+1)
	hasTypename := false
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if s.Name == "__typename" && (s.Alias == "" || s.Alias == s.Name) {
				hasTypename = true
			}
			if len(s.SelectionSet) > 0 {
				cp := *s
				cp.SelectionSet = p.inject(p.fieldType(typeName, s.Name), s.SelectionSet, false)
				out = append(out, &cp)
				continue
			}
			out = append(out, s)
		case *language.InlineFragment:
			cp := *s
			cp.SelectionSet = p.inject(condition(s, typeName), s.SelectionSet, false)
			out = append(out, &cp)
		default:
			out = append(out, sel)
		}
	}
	if hasTypename {
		return out
	}
	if force || p.unified.Schema.Types[typeName].IsAbstract() {
		out = append(out, &language.Field{Alias: "__typename", Name: "__typename"})
	}
	return out
}

func (p *planner) fieldType(typeName, field string) string {
	f := p.unified.Schema.Types[typeName].Field(field)
	if f == nil {
		return ""
	}
	return f.Type.GetNamedType()
}

func condition(f *language.InlineFragment, typeName string) string {
	if f.TypeCondition == "" {
		return typeName
	}
	return f.TypeCondition
}
