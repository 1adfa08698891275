package executor

import (
	"errors"
	"fmt"
	"strings"
)

// Path locates a value in the response by response names and list indices.
type Path []PathElement

// PathElement is a string response name or an int list index.
type PathElement any

// String renders p as "a.b[0].c".
func (p Path) String() string {
	var b strings.Builder
	for i, e := range p {
		switch v := e.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

func (p Path) with(e PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = e
	return out
}

// GraphQLError is a located error in an execution result.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult is the outcome of one operation. Data is nil only when
// execution could not start.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// ExtensionsError is implemented by errors that carry GraphQL error
// extensions, such as a classification code.
type ExtensionsError interface {
	error
	Extensions() map[string]any
}

func errorExtensions(err error) map[string]any {
	var ee ExtensionsError
	if errors.As(err, &ee) {
		return ee.Extensions()
	}
	return nil
}

// slot is the place in the response tree one value is written to: a key of
// an object or an element of a list.
type slot struct {
	path    Path
	nonNull bool
	up      *slot // enclosing field or list; nil for root fields
	set     func(any)
	dead    bool
}

func objectSlot(obj map[string]any, key string, path Path, nonNull bool, up *slot) *slot {
	obj[key] = nil
	return &slot{path: path, nonNull: nonNull, up: up, set: func(v any) { obj[key] = v }}
}

func listSlot(list []any, i int, nonNull bool, up *slot) *slot {
	return &slot{path: up.path.with(i), nonNull: nonNull, up: up, set: func(v any) { list[i] = v }}
}

// detached reports whether s or an enclosing slot was nulled, so nothing
// written below it can reach the response any more.
func (s *slot) detached() bool {
	for c := s; c != nil; c = c.up {
		if c.dead {
			return true
		}
	}
	return false
}

// null writes null for s. Null in a non-null position moves up to the
// nearest nullable enclosing slot. Root fields stop the walk, so one failed
// root field never erases its siblings.
func (s *slot) null() {
	for s.nonNull && s.up != nil {
		s = s.up
	}
	s.set(nil)
	s.dead = true
}
