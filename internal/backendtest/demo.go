package backendtest

import "fmt"

// DemoPorts are the ports the demo services listen on.
var DemoPorts = map[string]int{"a": 3001, "b": 3002, "c": 3003}

// DemoSDL returns the schema of demo service name. Every demo service shares
// Query.hello and Mutation.foo and contributes one field, named after the
// service, to FooMutations.
func DemoSDL(name string) string {
	return fmt.Sprintf(`type Query {
  hello: String!
}

type FooMutations {
  %s: String!
}

type Mutation {
  foo: FooMutations!
}
`, name)
}

// Demo returns demo service name with its resolvers registered.
func Demo(name string) (*Service, error) {
	s, err := New(name, DemoSDL(name))
	if err != nil {
		return nil, err
	}
	s.Value("Query.hello", "hello")
	s.Value("Mutation.foo", map[string]any{})
	s.Value("FooMutations."+name, name)
	return s, nil
}
