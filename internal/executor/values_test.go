package executor

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/stitchgate/internal/language"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

func coercionSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch := mustSchema(t, `
scalar Time
enum Color { RED GREEN }
input Filter { required: String! optional: Int limit: Int = 10 }
type Query { f(filter: Filter, limit: Int = 3, c: Color): String }
`)
	sch.AddType(schema.NewType("Pick", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("id", "", schema.NamedType("ID"))).
		AddInputField(schema.NewInputValue("name", "", schema.NamedType("String"))).
		SetOneOf(true))
	return sch
}

func TestCoerceVariableValues(t *testing.T) {
	sch := coercionSchema(t)

	tests := []struct {
		name     string
		defs     string
		provided map[string]any
		want     map[string]any
		wantErr  string
	}{
		{
			name:     "missing required input field",
			defs:     "$input: Filter!",
			provided: map[string]any{"input": map[string]any{"optional": 10}},
			wantErr:  "required field 'required' of type Filter was not provided",
		},
		{
			name:     "string for Int",
			defs:     "$count: Int!",
			provided: map[string]any{"count": "42"},
			wantErr:  "cannot coerce",
		},
		{
			name:     "input field defaults",
			defs:     "$input: Filter",
			provided: map[string]any{"input": map[string]any{"required": "r"}},
			want:     map[string]any{"input": map[string]any{"required": "r", "limit": 10}},
		},
		{
			name:     "undeclared input field",
			defs:     "$input: Filter",
			provided: map[string]any{"input": map[string]any{"required": "r", "extra": 1}},
			wantErr:  "field 'extra' is not defined by Filter",
		},
		{
			name:     "input field of the wrong type",
			defs:     "$input: Filter",
			provided: map[string]any{"input": map[string]any{"required": 1}},
			wantErr:  "field 'required' of Filter: cannot coerce 1 (int) to String",
		},
		{
			name:     "enum value",
			defs:     "$c: Color",
			provided: map[string]any{"c": "RED"},
			want:     map[string]any{"c": "RED"},
		},
		{
			name:     "unknown enum value",
			defs:     "$c: Color",
			provided: map[string]any{"c": "BLUE"},
			wantErr:  `"BLUE" is not a value of enum Color`,
		},
		{
			name:     "integer ID",
			defs:     "$id: ID",
			provided: map[string]any{"id": json.Number("7")},
			want:     map[string]any{"id": "7"},
		},
		{
			name:     "integral float for Int",
			defs:     "$n: Int",
			provided: map[string]any{"n": float64(3)},
			want:     map[string]any{"n": 3},
		},
		{
			name:     "fractional Int",
			defs:     "$n: Int",
			provided: map[string]any{"n": 1.5},
			wantErr:  "cannot coerce",
		},
		{
			name:     "Int beyond 32 bits",
			defs:     "$n: Int",
			provided: map[string]any{"n": json.Number("2147483648")},
			wantErr:  "cannot coerce",
		},
		{
			name:     "json number Float",
			defs:     "$f: Float!",
			provided: map[string]any{"f": json.Number("2.5")},
			want:     map[string]any{"f": 2.5},
		},
		{
			name:     "single value for list",
			defs:     "$ns: [Int!]",
			provided: map[string]any{"ns": 1},
			want:     map[string]any{"ns": []any{1}},
		},
		{
			name:     "null list item",
			defs:     "$ns: [Int!]",
			provided: map[string]any{"ns": []any{1, nil}},
			wantErr:  "at index 1: null given for non-null type Int!",
		},
		{
			name:    "missing required variable",
			defs:    "$n: Int!",
			wantErr: "variable $n of required type Int! was not provided",
		},
		{
			name: "variable default",
			defs: "$n: Int = 5",
			want: map[string]any{"n": 5},
		},
		{
			name: "absent optional variable",
			defs: "$n: Int",
			want: map[string]any{},
		},
		{
			name:     "explicit null",
			defs:     "$n: Int",
			provided: map[string]any{"n": nil},
			want:     map[string]any{"n": nil},
		},
		{
			name:     "custom scalar passes through",
			defs:     "$at: Time",
			provided: map[string]any{"at": "2026-10-17"},
			want:     map[string]any{"at": "2026-10-17"},
		},
		{
			name:     "one of",
			defs:     "$p: Pick",
			provided: map[string]any{"p": map[string]any{"id": 1}},
			want:     map[string]any{"p": map[string]any{"id": "1"}},
		},
		{
			name:     "one of with two fields",
			defs:     "$p: Pick",
			provided: map[string]any{"p": map[string]any{"id": "1", "name": "x"}},
			wantErr:  "exactly one field of Pick must be set, got 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParseQuery(t, fmt.Sprintf("query (%s) { f }", tt.defs))
			got, err := coerceVariableValues(sch, doc.Operations[0], tt.provided)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceArguments(t *testing.T) {
	sch := coercionSchema(t)
	def := sch.GetQueryType().Field("f")

	tests := []struct {
		name    string
		query   string
		vars    map[string]any
		want    map[string]any
		wantErr string
	}{
		{
			name:  "literals and nested variables",
			query: `{ f(filter: {required: "r", optional: $o}, c: GREEN) }`,
			vars:  map[string]any{"o": 2},
			want: map[string]any{
				"filter": map[string]any{"required": "r", "optional": 2, "limit": 10},
				"limit":  3,
				"c":      "GREEN",
			},
		},
		{
			name:  "absent variable takes the default",
			query: `{ f(limit: $missing) }`,
			want:  map[string]any{"limit": 3},
		},
		{
			name:    "invalid literal",
			query:   `{ f(limit: "ten") }`,
			wantErr: `argument "limit" of type Int got an invalid value`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParseQuery(t, tt.query)
			field := doc.Operations[0].SelectionSet[0].(*language.Field)
			got, err := coerceArguments(sch, def, field.Arguments, tt.vars)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
