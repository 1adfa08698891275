package stitchrt

import (
	executor "github.com/hanpama/stitchgate/internal/executor"
	httptp "github.com/hanpama/stitchgate/internal/httptp"
	language "github.com/hanpama/stitchgate/internal/language"
)

// buildRequest prints the operation one service receives. It keeps the
// client's operation kind and name, and declares and forwards only the
// variables the selection uses.
func buildRequest(op *language.OperationDefinition, fields language.SelectionSet, variables map[string]any) *httptp.Request {
	used := make(map[string]bool)
	collectVariables(fields, used)

	var defs language.VariableDefinitionList
	values := make(map[string]any)
	for _, vd := range op.VariableDefinitions {
		if !used[vd.Variable] {
			continue
		}
		defs = append(defs, vd)
		if v, ok := variables[vd.Variable]; ok {
			values[vd.Variable] = v
		}
	}

	doc := &language.QueryDocument{
		Operations: language.OperationList{{
			Operation:           op.Operation,
			Name:                op.Name,
			VariableDefinitions: defs,
			SelectionSet:        fields,
		}},
	}
	return &httptp.Request{
		Query:         language.FormatQuery(doc),
		Variables:     values,
		OperationName: op.Name,
	}
}

// rootField is the field a service selects for a root task. The response
// name is always kept so results can be matched back.
func rootField(task executor.AsyncResolveTask, selection language.SelectionSet) *language.Field {
	first := task.Fields[0]
	return &language.Field{
		Alias:        task.ResponseName,
		Name:         task.Field,
		Arguments:    first.Arguments,
		SelectionSet: selection,
	}
}

func collectVariables(set language.SelectionSet, into map[string]bool) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			for _, arg := range s.Arguments {
				collectValueVariables(arg.Value, into)
			}
			collectDirectiveVariables(s.Directives, into)
			collectVariables(s.SelectionSet, into)
		case *language.InlineFragment:
			collectDirectiveVariables(s.Directives, into)
			collectVariables(s.SelectionSet, into)
		}
	}
}

func collectDirectiveVariables(dirs language.DirectiveList, into map[string]bool) {
	for _, d := range dirs {
		for _, arg := range d.Arguments {
			collectValueVariables(arg.Value, into)
		}
	}
}

func collectValueVariables(v *language.Value, into map[string]bool) {
	if v == nil {
		return
	}
	if v.Kind == language.Variable {
		into[v.Raw] = true
		return
	}
	for _, c := range v.Children {
		collectValueVariables(c.Value, into)
	}
}
