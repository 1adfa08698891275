package stitch

import schema "github.com/hanpama/stitchgate/internal/schema"

type coordinate struct {
	typ, field string
}

// Plan records, for every type and field of the stitched schema, the
// services able to resolve it, in the order the services were stitched.
type Plan struct {
	schema *schema.Schema
	fields map[coordinate][]*Subschema
	types  map[string][]*Subschema
}

func newPlan() *Plan {
	return &Plan{
		fields: make(map[coordinate][]*Subschema),
		types:  make(map[string][]*Subschema),
	}
}

func (p *Plan) addField(typ, field string, sub *Subschema) {
	key := coordinate{typ, field}
	p.fields[key] = append(p.fields[key], sub)
}

func (p *Plan) addType(typ string, sub *Subschema) {
	p.types[typ] = append(p.types[typ], sub)
}

// Owners returns the services owning root field of operation ("query" or
// "mutation"). The first one is preferred.
func (p *Plan) Owners(operation, field string) []*Subschema {
	return p.FieldOwners(p.schema.RootTypeName(operation), field)
}

// FieldOwners returns the services declaring typ.field.
func (p *Plan) FieldOwners(typ, field string) []*Subschema {
	return p.fields[coordinate{typ, field}]
}

// TypeOwners returns the services declaring typ.
func (p *Plan) TypeOwners(typ string) []*Subschema {
	return p.types[typ]
}

// Resolves reports whether sub declares typ.field.
func (p *Plan) Resolves(sub *Subschema, typ, field string) bool {
	return contains(p.fields[coordinate{typ, field}], sub)
}

// Declares reports whether sub declares typ.
func (p *Plan) Declares(sub *Subschema, typ string) bool {
	return contains(p.types[typ], sub)
}

func contains(subs []*Subschema, sub *Subschema) bool {
	for _, s := range subs {
		if s == sub {
			return true
		}
	}
	return false
}
