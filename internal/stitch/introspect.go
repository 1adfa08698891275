package stitch

import (
	"context"
	"errors"
	"time"

	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
	httptp "github.com/hanpama/stitchgate/internal/httptp"
	introspection "github.com/hanpama/stitchgate/internal/introspection"
	schema "github.com/hanpama/stitchgate/internal/schema"
)

// Executor runs operations against one backend service.
type Executor interface {
	Execute(ctx context.Context, req *httptp.Request) (*httptp.Response, error)
}

// Subschema is the schema of one service bound to the executor that reaches
// it. It is not modified after construction.
type Subschema struct {
	Service  string
	Schema   *schema.Schema
	Executor Executor
}

// Introspect fetches the schema of service through exec. The introspection
// query is sent without a credential.
func Introspect(ctx context.Context, service string, exec Executor) (sub *Subschema, err error) {
	start := time.Now()
	defer func() {
		ev := events.IntrospectionFinish{Service: service, Err: err, Duration: time.Since(start)}
		if sub != nil {
			ev.Types = len(sub.Schema.Types)
		}
		eventbus.Publish(ctx, ev)
	}()

	resp, err := exec.Execute(ctx, &httptp.Request{Query: introspection.Query, OperationName: "IntrospectionQuery"})
	if err != nil {
		return nil, &IntrospectionError{Service: service, Err: err}
	}
	if len(resp.Errors) > 0 {
		return nil, &IntrospectionError{Service: service, Err: resp.Errors[0]}
	}
	if len(resp.Data) == 0 {
		return nil, &IntrospectionError{Service: service, Err: errors.New("empty introspection result")}
	}
	sch, err := introspection.Decode(resp.Data)
	if err != nil {
		return nil, &IntrospectionError{Service: service, Err: err}
	}
	return &Subschema{Service: service, Schema: sch, Executor: exec}, nil
}
