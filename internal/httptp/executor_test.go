package httptp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hanpama/stitchgate/internal/errs"
	reqid "github.com/hanpama/stitchgate/internal/reqid"
)

func newBackend(t *testing.T, h http.HandlerFunc) (*Executor, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New("a", strings.TrimPrefix(srv.URL, "http://")), &calls
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestExecuteForwardsCredential(t *testing.T) {
	var gotAuth []string
	var gotBody map[string]any
	exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Values("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, `{"data":{"hello":"hello"}}`)
	})

	resp, err := exec.Execute(context.Background(), &Request{
		Query:      "{ hello }",
		Variables:  map[string]any{"x": 1},
		Credential: "Bearer T",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"hello"}`, string(resp.Data))
	assert.Empty(t, resp.Errors)
	assert.Equal(t, []string{"Bearer T"}, gotAuth)
	assert.Equal(t, "{ hello }", gotBody["query"])
	assert.Equal(t, map[string]any{"x": float64(1)}, gotBody["variables"])
	assert.NotContains(t, gotBody, "operationName")
}

func TestExecuteWithoutCredential(t *testing.T) {
	var present bool
	exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
		writeJSON(w, `{"data":{}}`)
	})
	_, err := exec.Execute(context.Background(), &Request{Query: "{ hello }"})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestExecuteForwardsMetadataAndRequestID(t *testing.T) {
	var hdr http.Header
	exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Clone()
		writeJSON(w, `{"data":{}}`)
	})
	ctx := metadata.NewOutgoingContext(context.Background(), metadata.Pairs(
		"x-tenant", "acme",
		"authorization", "Bearer smuggled",
	))
	ctx, id := reqid.NewContext(ctx)

	_, err := exec.Execute(ctx, &Request{Query: "{ hello }"})
	require.NoError(t, err)
	assert.Equal(t, "acme", hdr.Get("X-Tenant"))
	assert.Equal(t, id, hdr.Get(reqid.Header))
	assert.Empty(t, hdr.Get("Authorization"))
}

func TestExecuteContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantErr     error
		wantMessage string
	}{
		{name: "missing", contentType: "", wantErr: errs.ErrMissingContentType, wantMessage: "no content-type specified"},
		{name: "text", contentType: "text/plain", wantErr: errs.ErrUnexpectedContentType, wantMessage: "text/plain"},
		{name: "html", contentType: "text/html; charset=utf-8", wantErr: errs.ErrUnexpectedContentType, wantMessage: "text/html"},
		{name: "latin1", contentType: "application/json; charset=iso-8859-1", wantErr: errs.ErrMalformedResponseBody},
		{name: "json charset", contentType: "application/json; charset=UTF-8"},
		{name: "graphql response", contentType: "application/graphql-response+json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				// Setting nil suppresses net/http content sniffing.
				w.Header()["Content-Type"] = nil
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
			})
			_, err := exec.Execute(context.Background(), &Request{Query: "{ ok }"})
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, errs.ClassCall, errs.ClassOf(err))
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
		})
	}

	t.Run("typed", func(t *testing.T) {
		exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hi"))
		})
		_, err := exec.Execute(context.Background(), &Request{Query: "{ ok }"})
		var ct *UnexpectedContentTypeError
		require.True(t, errors.As(err, &ct))
		assert.Equal(t, "text/plain", ct.ContentType)
	})
}

func TestExecuteMalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated", `{"data": {`},
		{"trailing text", `{"data":{"a":"a"}} this is not json`},
		{"second value", `{"data":{"a":"a"}}{"data":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			resp, err := exec.Execute(context.Background(), &Request{Query: "{ a }"})
			require.ErrorIs(t, err, errs.ErrMalformedResponseBody)
			require.Nil(t, resp)
		})
	}

	exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, "{\"data\":{\"a\":\"a\"}}\n\n")
	})
	resp, err := exec.Execute(context.Background(), &Request{Query: "{ a }"})
	require.NoError(t, err, "trailing whitespace is allowed")
	require.JSONEq(t, `{"a":"a"}`, string(resp.Data))
}

func TestExecuteRemoteErrors(t *testing.T) {
	exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"data":{"user":null},"errors":[{"message":"boom","path":["user",0,"name"],"extensions":{"code":"E1"}}]}`)
	})
	resp, err := exec.Execute(context.Background(), &Request{Query: "{ user { name } }"})
	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	re := resp.Errors[0]
	assert.Equal(t, "boom", re.Message)
	assert.Equal(t, []any{"user", 0, "name"}, re.Path)
	assert.Equal(t, "E1", re.Extensions["code"])
	assert.ErrorIs(t, re, errs.ErrExecution)
	assert.Equal(t, "boom (at user.0.name)", re.Error())
}

func TestExecuteStatus(t *testing.T) {
	exec, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := exec.Execute(context.Background(), &Request{Query: "{ hello }"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
}

func TestExecuteDegenerate(t *testing.T) {
	exec, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"data":{}}`)
	})
	for _, q := range []string{"mutation\n", "mutation", "mutation {}", "mutation Foo { }"} {
		_, err := exec.Execute(context.Background(), &Request{Query: q})
		require.ErrorIs(t, err, errs.ErrDegenerateOperation, q)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))

	_, err := exec.Execute(context.Background(), &Request{Query: "mutation { foo { a } }"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestExecuteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, `{"data":{}}`)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	exec := New("slow", strings.TrimPrefix(srv.URL, "http://"), WithCallTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := exec.Execute(context.Background(), &Request{Query: "{ hello }"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	// A later deadline on the caller's context does not lift the call timeout.
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	start = time.Now()
	_, err = exec.Execute(ctx, &Request{Query: "{ hello }"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	// An earlier one still wins.
	long := New("slow", strings.TrimPrefix(srv.URL, "http://"), WithCallTimeout(time.Hour))
	ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start = time.Now()
	_, err = long.Execute(ctx, &Request{Query: "{ hello }"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCredentialContext(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, CredentialFromContext(ctx))
	require.Equal(t, ctx, WithCredential(ctx, ""))
	require.Equal(t, "Bearer x", CredentialFromContext(WithCredential(ctx, "Bearer x")))
}
