// Package reqid carries a per-request identifier through contexts. The id is
// a UUID so it can be correlated across the gateway and its backends.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used to propagate the id to backends.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent with a fresh request id and the id.
func NewContext(parent context.Context) (context.Context, string) {
	return WithID(parent, uuid.NewString())
}

// WithID stores id in parent. Inbound ids that are not valid UUIDs are
// replaced with a fresh one.
func WithID(parent context.Context, id string) (context.Context, string) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
