package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
	reqid "github.com/hanpama/stitchgate/internal/reqid"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup("", "stitchgate")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSpansFollowRequest(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer Instrument(tp)()

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPStart{Request: req})
	eventbus.Publish(ctx, events.GraphQLStart{OperationType: "mutation"})
	eventbus.Publish(ctx, events.BackendCallStart{Service: "a", Address: "localhost:3001", Operation: "mutation"})
	eventbus.Publish(ctx, events.BackendCallStart{Service: "b", Address: "localhost:3002", Operation: "mutation"})
	eventbus.Publish(ctx, events.BackendCallFinish{Service: "b", Err: errors.New("connection refused")})
	eventbus.Publish(ctx, events.BackendCallFinish{Service: "a", Status: 200})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "mutation"})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 4)
	byName := map[string][]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = append(byName[s.Name()], s)
	}
	require.Len(t, byName["backend.call"], 2)
	httpSpan := byName["http.request"][0]
	gqlSpan := byName["graphql.operation"][0]
	require.Equal(t, httpSpan.SpanContext().SpanID(), gqlSpan.Parent().SpanID())
	for _, s := range byName["backend.call"] {
		require.Equal(t, gqlSpan.SpanContext().SpanID(), s.Parent().SpanID())
		require.Equal(t, httpSpan.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
	failed := byName["backend.call"][0]
	require.Equal(t, codes.Error, failed.Status().Code)
}
